package http

import (
	"net/http"

	"go.uber.org/zap"
	"timed-quiz-service/internal/app"
)

// Deps are the use cases the HTTP layer exposes.
type Deps struct {
	Settings  *app.SettingsService
	Questions *app.QuestionService
	Quiz      *app.QuizService
	Results   *app.ResultService
	Users     *app.UserService
	Auth      *Authenticator
	WS        *WSHandler
	Logger    *zap.Logger
}

type API struct {
	settings  *app.SettingsService
	questions *app.QuestionService
	quiz      *app.QuizService
	results   *app.ResultService
	users     *app.UserService
	auth      *Authenticator
	ws        *WSHandler
	logger    *zap.Logger
}

func NewAPI(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		settings:  deps.Settings,
		questions: deps.Questions,
		quiz:      deps.Quiz,
		results:   deps.Results,
		users:     deps.Users,
		auth:      deps.Auth,
		ws:        deps.WS,
		logger:    logger,
	}
}

// Routes builds the full handler tree.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	admin := a.auth.RequireAdmin

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// public
	mux.HandleFunc("GET /settings/duration", a.getDuration)
	mux.HandleFunc("GET /quiz/duration", a.getDuration)
	mux.HandleFunc("GET /quiz/status", a.getStatus)
	mux.HandleFunc("GET /quiz/active-questions", a.getActiveQuestions)
	mux.HandleFunc("GET /quiz/active", a.getActiveQuestions)
	mux.HandleFunc("POST /quiz/submit", a.submit)
	mux.HandleFunc("POST /user/login", a.userLogin)
	mux.HandleFunc("POST /user/logout", a.userLogout)
	mux.HandleFunc("POST /admin/login", a.adminLogin)
	if a.ws != nil {
		mux.HandleFunc("GET /ws/attempt", a.ws.ServeWS)
	}

	// admin
	mux.HandleFunc("GET /settings", admin(a.getSettings))
	mux.HandleFunc("PUT /settings/duration", admin(a.putDuration))
	mux.HandleFunc("PUT /quiz/settings", admin(a.putDuration))
	mux.HandleFunc("POST /quiz/toggle-status", admin(a.toggleStatus))

	mux.HandleFunc("GET /questions", admin(a.listQuestions))
	mux.HandleFunc("POST /questions", admin(a.createQuestion))
	mux.HandleFunc("DELETE /questions", admin(a.deleteQuestionByQuery))
	mux.HandleFunc("DELETE /questions/all", admin(a.deleteAllQuestions))
	mux.HandleFunc("PUT /questions/timer", admin(a.putQuestionTimer))
	mux.HandleFunc("GET /questions/{id}", admin(a.getQuestion))
	mux.HandleFunc("PUT /questions/{id}", admin(a.updateQuestion))
	mux.HandleFunc("DELETE /questions/{id}", admin(a.deleteQuestion))

	mux.HandleFunc("GET /quiz/results", admin(a.listResults))
	mux.HandleFunc("GET /quiz/results/export", admin(a.exportResults))
	mux.HandleFunc("GET /quiz/results/{id}", admin(a.getResult))
	mux.HandleFunc("DELETE /quiz/results/all", admin(a.deleteAllResults))
	mux.HandleFunc("DELETE /quiz/results/{id}", admin(a.deleteResult))

	return withRecover(a.logger, withRequestLog(a.logger, mux))
}
