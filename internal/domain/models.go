package domain

import "time"

const (
	// DefaultDurationMinutes is used when no settings exist yet and when a client cannot fetch them.
	DefaultDurationMinutes = 30
	MinDurationMinutes     = 1
	MaxDurationMinutes     = 180

	// OptionCount is the fixed number of options per question.
	OptionCount = 4

	DefaultQuestionTimer = 30
	MinQuestionTimer     = 10
	MaxQuestionTimer     = 180

	// NotAnswered is recorded as the user answer for skipped questions.
	NotAnswered = "Not answered"
)

// QuizSettings is the singleton quiz configuration.
type QuizSettings struct {
	Duration  int       `json:"duration"` // minutes
	IsLive    bool      `json:"isLive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultSettings is the record created lazily on first read.
func DefaultSettings() QuizSettings {
	return QuizSettings{Duration: DefaultDurationMinutes, IsLive: false}
}

// Question models an MCQ question with exactly four options.
type Question struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correctOptionIndex"` // 1-based
	Timer              int       `json:"timer"`              // seconds, informational only
	CreatedAt          time.Time `json:"createdAt"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: options, Timer: q.Timer}
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	i := q.CorrectOptionIndex - 1
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return q.Options[i]
}

// PublicQuestion is what clients see: never the correct option.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Timer   int      `json:"timer"`
}

// Participant identifies the person taking the quiz.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Submission is a completed attempt as sent by a client.
// A nil entry in Answers means the question was not answered.
type Submission struct {
	Answers    []*int
	UserName   string
	UserEmail  string
	TabChanges int
	AttemptKey string
}

// AnswerBreakdown is the per-question outcome of scoring.
type AnswerBreakdown struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// SubmissionSummary is returned to the submitting user.
type SubmissionSummary struct {
	ResultID  string            `json:"resultId"`
	Score     int               `json:"score"`
	Total     int               `json:"total"`
	Breakdown []AnswerBreakdown `json:"results"`
}

// Result is the persisted, scored record of a completed attempt.
type Result struct {
	ID         string            `json:"id"`
	User       Participant       `json:"user"`
	Score      int               `json:"score"`
	Total      int               `json:"total"`
	Answers    []AnswerBreakdown `json:"answers"`
	TabChanges int               `json:"tabChanges"`
	Flagged    bool              `json:"flagged"`
	AttemptKey string            `json:"attemptKey,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Summary converts a stored result to the shape returned on submission.
func (r Result) Summary() SubmissionSummary {
	return SubmissionSummary{ResultID: r.ID, Score: r.Score, Total: r.Total, Breakdown: r.Answers}
}

// User is a login record.
type User struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	LoggedIn  bool       `json:"loggedIn"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}
