package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"timed-quiz-service/internal/domain"
)

type mapStorage struct {
	mu     sync.Mutex
	values map[string]string
	clears int
}

func newMapStorage() *mapStorage {
	return &mapStorage{values: make(map[string]string)}
}

func (s *mapStorage) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *mapStorage) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *mapStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.clears++
	return nil
}

func (s *mapStorage) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

type fakeSettings struct {
	mu       sync.Mutex
	duration time.Duration
	durErr   error
	live     bool
}

func (f *fakeSettings) QuizDuration(context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration, f.durErr
}

func (f *fakeSettings) QuizLive(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live, nil
}

func (f *fakeSettings) setLive(live bool) {
	f.mu.Lock()
	f.live = live
	f.mu.Unlock()
}

type fakeSubmitter struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	err     error

	mu   sync.Mutex
	last domain.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, sub domain.Submission) (domain.SubmissionSummary, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = sub
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return domain.SubmissionSummary{}, f.err
	}
	correct := 0
	for _, a := range sub.Answers {
		if a != nil && *a == 0 {
			correct++
		}
	}
	return domain.SubmissionSummary{ResultID: "r1", Score: correct, Total: len(sub.Answers)}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store     *mapStorage
	settings  *fakeSettings
	submitter *fakeSubmitter
	clock     *fakeClock
}

func newFixture(duration time.Duration, live bool) *fixture {
	return &fixture{
		store:     newMapStorage(),
		settings:  &fakeSettings{duration: duration, live: live},
		submitter: &fakeSubmitter{},
		clock:     &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
}

func (f *fixture) attempt(t *testing.T) *Attempt {
	t.Helper()
	a := New(Config{
		User:          domain.Participant{Name: "Ada Lovelace", Email: "ada@example.com"},
		QuestionCount: 3,
		Storage:       f.store,
		Settings:      f.settings,
		Submitter:     f.submitter,
		Now:           f.clock.Now,
	})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	return a
}

func TestTimerResumesAfterReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)

	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 2); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if a.State() != Running {
		t.Fatalf("expected running, got %s", a.State())
	}

	f.clock.Advance(3 * time.Minute)
	reloaded := f.attempt(t)

	snap := reloaded.Snapshot()
	if snap.State != Running.String() {
		t.Fatalf("expected running after reload, got %s", snap.State)
	}
	if snap.Remaining != 7*60 {
		t.Fatalf("expected 420s remaining, got %d", snap.Remaining)
	}
	if snap.Answers[0] != 2 {
		t.Fatalf("expected saved answer restored, got %+v", snap.Answers)
	}
}

func TestReloadIgnoresChangedDurationOnceStarted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)

	a := f.attempt(t)
	if _, err := a.Answer(ctx, 1, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	f.settings.mu.Lock()
	f.settings.duration = 60 * time.Minute
	f.settings.mu.Unlock()

	reloaded := f.attempt(t)
	if got := reloaded.Snapshot().Total; got != 600 {
		t.Fatalf("expected persisted total 600s, got %d", got)
	}
}

func TestTickNeverIncreases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Minute, true)
	a := f.attempt(t)
	start := f.clock.Now()

	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.clock.Set(start.Add(10 * time.Second))
	first := a.Tick(ctx)
	if first.Remaining != 50 {
		t.Fatalf("expected 50, got %d", first.Remaining)
	}

	f.clock.Set(start.Add(2 * time.Second))
	second := a.Tick(ctx)
	if second.Remaining > first.Remaining {
		t.Fatalf("remaining increased from %d to %d", first.Remaining, second.Remaining)
	}

	f.clock.Set(start.Add(11 * time.Second))
	third := a.Tick(ctx)
	if third.Remaining != 49 {
		t.Fatalf("expected 49, got %d", third.Remaining)
	}
}

func TestAnswerBeforeLiveDoesNotStartTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, false)
	a := f.attempt(t)

	if _, err := a.Answer(ctx, 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if a.State() != NotStarted {
		t.Fatalf("expected timer not started, got %s", a.State())
	}
	if _, ok := f.store.get(KeyTimerStarted); ok {
		t.Fatalf("expected no timer keys persisted")
	}

	if _, err := a.Navigate(ctx, 1); !errors.Is(err, domain.ErrNotLive) {
		t.Fatalf("expected not live on forward navigation, got %v", err)
	}

	f.settings.setLive(true)
	a.RefreshStatus(ctx)
	if _, err := a.Answer(ctx, 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if a.State() != Running {
		t.Fatalf("expected running once live, got %s", a.State())
	}
}

func TestAnswerRejectsOutOfRange(t *testing.T) {
	f := newFixture(time.Minute, true)
	a := f.attempt(t)

	if _, err := a.Answer(context.Background(), 3, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for question index, got %v", err)
	}
	if _, err := a.Answer(context.Background(), 0, domain.OptionCount); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for option index, got %v", err)
	}
}

func TestHiddenWarnsThenSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	a := f.attempt(t)

	if ev := a.Hidden(ctx); ev.Outcome != TabIgnored {
		t.Fatalf("expected hidden ignored before start, got %s", ev.Outcome)
	}
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	first := a.Hidden(ctx)
	if first.Outcome != TabWarned || first.Count != 1 {
		t.Fatalf("expected warning with count 1, got %s/%d", first.Outcome, first.Count)
	}
	if f.submitter.calls.Load() != 0 {
		t.Fatalf("expected no submission after first hidden event")
	}

	second := a.Hidden(ctx)
	if second.Outcome != TabForceSubmit || second.Summary == nil {
		t.Fatalf("expected forced submission, got %+v", second)
	}
	if f.submitter.last.TabChanges != 2 {
		t.Fatalf("expected tab changes 2 in payload, got %d", f.submitter.last.TabChanges)
	}

	third := a.Hidden(ctx)
	if third.Outcome != TabIgnored {
		t.Fatalf("expected later hidden events ignored, got %s", third.Outcome)
	}
	if got := f.submitter.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one submission, got %d", got)
	}
}

func TestTabCountSurvivesReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	a.Hidden(ctx)

	reloaded := f.attempt(t)
	ev := reloaded.Hidden(ctx)
	if ev.Outcome != TabForceSubmit {
		t.Fatalf("expected reload to keep the warning, got %s", ev.Outcome)
	}
}

func TestExpirySubmitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Minute, true)
	a := f.attempt(t)

	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	f.clock.Advance(61 * time.Second)

	ev := a.Tick(ctx)
	if ev.Summary == nil || ev.Err != nil {
		t.Fatalf("expected auto submission, got %+v", ev)
	}
	if ev.State != Submitted {
		t.Fatalf("expected submitted, got %s", ev.State)
	}

	late := a.Tick(ctx)
	if late.Summary != nil {
		t.Fatalf("late tick produced a second summary")
	}
	if _, err := a.Submit(ctx); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if got := f.submitter.calls.Load(); got != 1 {
		t.Fatalf("expected one submission, got %d", got)
	}
}

func TestAnswersLockedAfterFailedAutoSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Minute, true)
	f.submitter.err = domain.ErrServiceUnavailable
	a := f.attempt(t)

	if _, err := a.Answer(ctx, 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	ev := a.Tick(ctx)
	if ev.State != Expired || !errors.Is(ev.Err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected failed auto submission, got %+v", ev)
	}

	f.clock.Advance(30 * time.Minute)
	if _, err := a.Answer(ctx, 0, 0); !errors.Is(err, ErrTimeUp) {
		t.Fatalf("expected answer rejected after expiry, got %v", err)
	}
	if _, err := a.Navigate(ctx, 1); !errors.Is(err, ErrTimeUp) {
		t.Fatalf("expected navigation rejected after expiry, got %v", err)
	}

	f.submitter.err = nil
	summary, err := a.Submit(ctx)
	if err != nil {
		t.Fatalf("manual submit: %v", err)
	}
	if summary.Score != 0 {
		t.Fatalf("expected the pre-deadline answer to be scored, got %d", summary.Score)
	}
	f.submitter.mu.Lock()
	last := f.submitter.last
	f.submitter.mu.Unlock()
	if last.Answers[0] == nil || *last.Answers[0] != 1 {
		t.Fatalf("unexpected submitted answers %+v", last.Answers)
	}
}

func TestAnswerAfterDeadlineBeforeTickRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Minute, true)
	a := f.attempt(t)

	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	f.clock.Advance(90 * time.Second)
	if _, err := a.Answer(ctx, 1, 0); !errors.Is(err, ErrTimeUp) {
		t.Fatalf("expected answer rejected, got %v", err)
	}

	ev := a.Tick(ctx)
	if ev.Summary == nil || ev.State != Submitted {
		t.Fatalf("expected tick to auto submit, got %+v", ev)
	}
}

func TestReloadAfterDeadlineExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Minute, true)
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.clock.Advance(5 * time.Minute)
	reloaded := f.attempt(t)
	if got := reloaded.Snapshot().Remaining; got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
	if ev := reloaded.Tick(ctx); ev.Summary == nil {
		t.Fatalf("expected immediate auto submission, got %+v", ev)
	}
}

func TestConcurrentSubmitIsGuarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	f.submitter.entered = make(chan struct{}, 1)
	f.submitter.release = make(chan struct{})
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx)
		done <- err
	}()
	<-f.submitter.entered

	if !a.Snapshot().Submitting {
		t.Fatalf("expected submitting flag while in flight")
	}
	if _, err := a.Submit(ctx); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	f.clock.Advance(11 * time.Minute)
	if ev := a.Tick(ctx); !errors.Is(ev.Err, ErrSubmitInProgress) {
		t.Fatalf("expected expiry to respect the guard, got %+v", ev)
	}

	close(f.submitter.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if got := f.submitter.calls.Load(); got != 1 {
		t.Fatalf("expected one submission, got %d", got)
	}
}

func TestSubmitWhenNotLiveKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 1, 3); err != nil {
		t.Fatalf("answer: %v", err)
	}

	f.settings.setLive(false)
	a.RefreshStatus(ctx)

	if _, err := a.Submit(ctx); !errors.Is(err, domain.ErrNotLive) {
		t.Fatalf("expected not live, got %v", err)
	}
	if f.submitter.calls.Load() != 0 {
		t.Fatalf("expected no call to the submitter")
	}
	if raw, ok := f.store.get(KeyAnswers); !ok || raw == "" {
		t.Fatalf("expected answers kept in storage")
	}
	if a.Snapshot().Submitting {
		t.Fatalf("expected guard released")
	}

	f.settings.setLive(true)
	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("expected retry to succeed once live, got %v", err)
	}
}

func TestSubmitterNotLiveReleasesGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	f.submitter.err = domain.ErrNotLive
	a := f.attempt(t)

	if _, err := a.Submit(ctx); !errors.Is(err, domain.ErrNotLive) {
		t.Fatalf("expected not live, got %v", err)
	}
	snap := a.Snapshot()
	if snap.Live || snap.Submitting {
		t.Fatalf("expected live=false and guard released, got %+v", snap)
	}
}

func TestSubmitBuildsPayloadAndClearsStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	a := f.attempt(t)
	start := f.clock.Now()

	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := a.Answer(ctx, 2, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	summary, err := a.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 1 || summary.Total != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	sub := f.submitter.last
	if len(sub.Answers) != 3 || sub.Answers[1] != nil || *sub.Answers[0] != 0 || *sub.Answers[2] != 1 {
		t.Fatalf("unexpected answers payload %+v", sub.Answers)
	}
	if sub.AttemptKey != AttemptKey("ada@example.com", start) {
		t.Fatalf("unexpected attempt key %q", sub.AttemptKey)
	}
	for _, key := range Keys {
		if _, ok := f.store.get(key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}
	if f.store.clears != 1 {
		t.Fatalf("expected a single clear, got %d", f.store.clears)
	}
}

func TestDurationFetchFailureUsesDefault(t *testing.T) {
	f := newFixture(0, true)
	f.settings.durErr = errors.New("network down")
	a := f.attempt(t)

	if got := a.Snapshot().Total; got != domain.DefaultDurationMinutes*60 {
		t.Fatalf("expected default duration, got %d", got)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10*time.Minute, true)
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if err := a.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	for _, key := range Keys {
		if _, ok := f.store.get(key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}
	if _, err := a.Answer(ctx, 1, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed attempt, got %v", err)
	}
}

func TestRunStopsOnTerminalState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f := newFixture(time.Minute, true)
	a := f.attempt(t)
	if _, err := a.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	var events []TickEvent
	a.Run(ctx, 5*time.Millisecond, func(ev TickEvent) {
		events = append(events, ev)
	})

	if ctx.Err() != nil {
		t.Fatalf("run did not stop on its own")
	}
	if len(events) != 1 || events[0].Summary == nil {
		t.Fatalf("expected a single submitting tick, got %+v", events)
	}
}
