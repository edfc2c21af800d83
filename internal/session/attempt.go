package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

var (
	// ErrSubmitInProgress is returned while another submission for the attempt is in flight.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned once the attempt has a result.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrClosed is returned after logout.
	ErrClosed = errors.New("attempt closed")
	// ErrTimeUp is returned for answer changes after the countdown has run out.
	// Only Submit is accepted from then on.
	ErrTimeUp = errors.New("time is up")
)

// DefaultDuration is used when the quiz duration cannot be fetched.
const DefaultDuration = domain.DefaultDurationMinutes * time.Minute

// SettingsSource tells the attempt how long the quiz lasts and whether it is live.
type SettingsSource interface {
	QuizDuration(ctx context.Context) (time.Duration, error)
	QuizLive(ctx context.Context) (bool, error)
}

// Submitter hands a completed attempt to the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionSummary, error)
}

// Reason says what triggered a submission.
type Reason string

const (
	ReasonManual    Reason = "manual"
	ReasonExpired   Reason = "expired"
	ReasonTabSwitch Reason = "tabSwitch"
)

// Config wires an Attempt.
type Config struct {
	User          domain.Participant
	QuestionCount int
	Storage       Storage
	Settings      SettingsSource
	Submitter     Submitter
	Logger        *zap.Logger
	Now           func() time.Time
}

// Snapshot is a read-only view of the attempt.
type Snapshot struct {
	State         string      `json:"state"`
	Remaining     int         `json:"remaining"`
	Total         int         `json:"total"`
	Live          bool        `json:"live"`
	Answers       map[int]int `json:"answers"`
	Current       int         `json:"current"`
	QuestionCount int         `json:"questionCount"`
	TabChanges    int         `json:"tabChanges"`
	Submitting    bool        `json:"submitting"`
}

// TickEvent is produced once per tick.
type TickEvent struct {
	State     State
	Remaining int
	Summary   *domain.SubmissionSummary
	Err       error
}

// TabEvent is the result of a hidden-tab notification.
type TabEvent struct {
	Outcome TabOutcome
	Count   int
	Summary *domain.SubmissionSummary
	Err     error
}

// Attempt is one user's in-progress run through the question set. It is
// constructed when the quiz page loads and is finished by submission or logout.
type Attempt struct {
	mu sync.Mutex

	user          domain.Participant
	questionCount int
	store         Storage
	settings      SettingsSource
	submitter     Submitter
	logger        *zap.Logger
	now           func() time.Time

	timer      *Timer
	tabs       TabMonitor
	answers    map[int]int
	current    int
	live       bool
	submitting bool
	closed     bool
	summary    *domain.SubmissionSummary
}

func New(cfg Config) *Attempt {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Attempt{
		user:          cfg.User,
		questionCount: cfg.QuestionCount,
		store:         cfg.Storage,
		settings:      cfg.Settings,
		submitter:     cfg.Submitter,
		logger:        logger.With(zap.String("email", cfg.User.Email)),
		now:           now,
		timer:         newTimer(cfg.Storage, now),
		answers:       make(map[int]int),
	}
}

// Load restores persisted progress and reads the current settings. If the
// duration cannot be fetched the default is used instead of blocking the user.
func (a *Attempt) Load(ctx context.Context) error {
	values, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if raw := values[KeyAnswers]; raw != "" {
		var saved map[int]int
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			a.logger.Warn("discarding unreadable saved answers", zap.Error(err))
		} else {
			for q, opt := range saved {
				if a.validAnswer(q, opt) {
					a.answers[q] = opt
				}
			}
		}
	}
	if cur, err := strconv.Atoi(values[KeyCurrentQuestion]); err == nil && cur >= 0 && cur < a.questionCount {
		a.current = cur
	}
	if n, err := strconv.Atoi(values[KeyTabChanges]); err == nil && n > 0 {
		a.tabs.count = n
	}

	a.timer.restore(values)
	if a.timer.State() == NotStarted {
		total, err := a.settings.QuizDuration(ctx)
		if err != nil || total <= 0 {
			a.logger.Warn("quiz duration unavailable, using default", zap.Error(err))
			total = DefaultDuration
		}
		if err := a.timer.SetTotal(ctx, total); err != nil {
			return err
		}
	} else {
		a.tabs.Attach()
	}

	a.live = a.fetchLive(ctx)
	return nil
}

// RefreshStatus re-reads the live flag.
func (a *Attempt) RefreshStatus(ctx context.Context) bool {
	live := a.fetchLive(ctx)
	a.mu.Lock()
	a.live = live
	a.mu.Unlock()
	return live
}

func (a *Attempt) fetchLive(ctx context.Context) bool {
	live, err := a.settings.QuizLive(ctx)
	if err != nil {
		a.logger.Warn("quiz status unavailable", zap.Error(err))
		return false
	}
	return live
}

// Answer records a selection. The first selection while live starts the timer.
func (a *Attempt) Answer(ctx context.Context, question, option int) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if a.timer.Elapsed() {
		return Snapshot{}, ErrTimeUp
	}
	if !a.validAnswer(question, option) {
		return Snapshot{}, domain.Invalid("answer", "question or option index out of range")
	}

	started, err := a.timer.Start(ctx, a.live)
	if err != nil {
		return Snapshot{}, err
	}
	if started {
		a.tabs.Attach()
		a.logger.Info("attempt timer started", zap.Time("startedAt", a.timer.StartedAt()))
	}

	a.answers[question] = option
	if err := a.persistProgressLocked(ctx); err != nil {
		return Snapshot{}, err
	}
	return a.snapshotLocked(), nil
}

// Navigate moves to another question. Moving forward requires a live quiz.
func (a *Attempt) Navigate(ctx context.Context, index int) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if a.timer.Elapsed() {
		return Snapshot{}, ErrTimeUp
	}
	if index < 0 || index >= a.questionCount {
		return Snapshot{}, domain.Invalid("index", "question index out of range")
	}
	if index > a.current && !a.live {
		return Snapshot{}, domain.ErrNotLive
	}
	a.current = index
	if err := a.persistProgressLocked(ctx); err != nil {
		return Snapshot{}, err
	}
	return a.snapshotLocked(), nil
}

// Tick recomputes the remaining time and submits automatically on expiry.
func (a *Attempt) Tick(ctx context.Context) TickEvent {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return TickEvent{State: Submitted}
	}
	seconds, expired := a.timer.Tick()
	state := a.timer.State()
	a.mu.Unlock()

	if !expired {
		return TickEvent{State: state, Remaining: seconds}
	}

	a.logger.Info("attempt time expired, submitting")
	summary, err := a.submit(ctx, ReasonExpired)
	event := TickEvent{State: a.State(), Remaining: 0, Err: err}
	if err == nil {
		event.Summary = &summary
	}
	return event
}

// Hidden reports a visibility-hidden event. The first one while running warns,
// the next forces submission.
func (a *Attempt) Hidden(ctx context.Context) TabEvent {
	a.mu.Lock()
	if a.closed || a.timer.State() != Running {
		count := a.tabs.Count()
		a.mu.Unlock()
		return TabEvent{Outcome: TabIgnored, Count: count}
	}
	outcome := a.tabs.Hidden()
	count := a.tabs.Count()
	var persistErr error
	if outcome != TabIgnored {
		persistErr = a.store.Set(ctx, map[string]string{KeyTabChanges: strconv.Itoa(count)})
	}
	a.mu.Unlock()

	if persistErr != nil {
		a.logger.Warn("persist tab change count failed", zap.Error(persistErr))
	}
	event := TabEvent{Outcome: outcome, Count: count}
	if outcome != TabForceSubmit {
		return event
	}

	a.logger.Info("tab changed repeatedly, submitting", zap.Int("tabChanges", count))
	summary, err := a.submit(ctx, ReasonTabSwitch)
	if err != nil {
		event.Err = err
		return event
	}
	event.Summary = &summary
	return event
}

// Submit sends the attempt for scoring.
func (a *Attempt) Submit(ctx context.Context) (domain.SubmissionSummary, error) {
	return a.submit(ctx, ReasonManual)
}

// submit holds the submitting guard for the whole network call, so concurrent
// triggers (expiry, tab switch, button) yield at most one submission.
func (a *Attempt) submit(ctx context.Context, reason Reason) (domain.SubmissionSummary, error) {
	a.mu.Lock()
	if err := a.checkOpenLocked(); err != nil {
		a.mu.Unlock()
		return domain.SubmissionSummary{}, err
	}
	if a.submitting {
		a.mu.Unlock()
		return domain.SubmissionSummary{}, ErrSubmitInProgress
	}
	a.submitting = true
	live := a.live
	sub := a.submissionLocked()
	a.mu.Unlock()

	if !live {
		live = a.RefreshStatus(ctx)
	}
	if !live {
		a.release()
		a.logger.Info("submission blocked, quiz not live", zap.String("reason", string(reason)))
		return domain.SubmissionSummary{}, domain.ErrNotLive
	}

	summary, err := a.submitter.Submit(ctx, sub)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitting = false
	if err != nil {
		if errors.Is(err, domain.ErrNotLive) {
			a.live = false
		}
		a.logger.Warn("submission failed", zap.String("reason", string(reason)), zap.Error(err))
		return domain.SubmissionSummary{}, err
	}

	a.timer.finish()
	a.tabs.Detach()
	a.summary = &summary
	if err := a.store.Clear(ctx); err != nil {
		a.logger.Warn("clear attempt storage failed", zap.Error(err))
	}
	a.logger.Info("attempt submitted",
		zap.String("reason", string(reason)),
		zap.Int("score", summary.Score),
		zap.Int("total", summary.Total),
	)
	return summary, nil
}

func (a *Attempt) release() {
	a.mu.Lock()
	a.submitting = false
	a.mu.Unlock()
}

// Logout discards the attempt and all persisted keys.
func (a *Attempt) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.tabs.Detach()
	return a.store.Clear(ctx)
}

// Run ticks every interval until the context ends or the attempt reaches a
// terminal state. The ticker is always stopped on return.
func (a *Attempt) Run(ctx context.Context, interval time.Duration, onTick func(TickEvent)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			event := a.Tick(ctx)
			if errors.Is(event.Err, ErrSubmitInProgress) {
				event.Err = nil
			}
			if onTick != nil {
				onTick(event)
			}
			if event.State.Terminal() || a.isClosed() {
				return
			}
		}
	}
}

// State is the current countdown state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer.State()
}

// Summary is the result of a successful submission, if any.
func (a *Attempt) Summary() (domain.SubmissionSummary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.summary == nil {
		return domain.SubmissionSummary{}, false
	}
	return *a.summary, true
}

func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Attempt) checkOpenLocked() error {
	if a.closed {
		return ErrClosed
	}
	if a.summary != nil {
		return ErrAlreadySubmitted
	}
	return nil
}

func (a *Attempt) validAnswer(question, option int) bool {
	return question >= 0 && question < a.questionCount && option >= 0 && option < domain.OptionCount
}

func (a *Attempt) persistProgressLocked(ctx context.Context) error {
	raw, err := json.Marshal(a.answers)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, map[string]string{
		KeyAnswers:         string(raw),
		KeyCurrentQuestion: strconv.Itoa(a.current),
	})
}

func (a *Attempt) submissionLocked() domain.Submission {
	answers := make([]*int, a.questionCount)
	for q, opt := range a.answers {
		if q >= 0 && q < a.questionCount {
			selected := opt
			answers[q] = &selected
		}
	}
	sub := domain.Submission{
		Answers:    answers,
		UserName:   a.user.Name,
		UserEmail:  a.user.Email,
		TabChanges: a.tabs.Count(),
	}
	if a.timer.State() != NotStarted {
		sub.AttemptKey = AttemptKey(a.user.Email, a.timer.StartedAt())
	}
	return sub
}

func (a *Attempt) snapshotLocked() Snapshot {
	answers := make(map[int]int, len(a.answers))
	for q, opt := range a.answers {
		answers[q] = opt
	}
	return Snapshot{
		State:         a.timer.State().String(),
		Remaining:     a.timer.RemainingSeconds(),
		Total:         int(a.timer.Total() / time.Second),
		Live:          a.live,
		Answers:       answers,
		Current:       a.current,
		QuestionCount: a.questionCount,
		TabChanges:    a.tabs.Count(),
		Submitting:    a.submitting,
	}
}
