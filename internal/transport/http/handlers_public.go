package http

import (
	"net/http"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

type durationResponse struct {
	Duration int `json:"duration"`
}

type statusResponse struct {
	IsLive bool `json:"isLive"`
}

type submitRequest struct {
	Answers        []*int `json:"answers"`
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
	TabChangeCount int    `json:"tabChangeCount"`
	AttemptKey     string `json:"attemptKey"`
}

type userLoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userLoginResponse struct {
	Message string             `json:"message"`
	User    domain.Participant `json:"user"`
}

type logoutRequest struct {
	Email string `json:"email"`
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string    `json:"token"`
	User  adminUser `json:"user"`
}

type adminUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *API) getDuration(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settings.Settings(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, durationResponse{Duration: settings.Duration})
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	live, err := a.settings.QuizLive(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{IsLive: live})
}

func (a *API) getActiveQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := a.questions.Active(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	summary, err := a.quiz.Submit(r.Context(), domain.Submission{
		Answers:    req.Answers,
		UserName:   req.UserName,
		UserEmail:  req.UserEmail,
		TabChanges: req.TabChangeCount,
		AttemptKey: req.AttemptKey,
	})
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) userLogin(w http.ResponseWriter, r *http.Request) {
	var req userLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	user, created, err := a.users.Login(r.Context(), req.Name, req.Email)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	participant := domain.Participant{Name: user.Name, Email: user.Email}
	if created {
		writeJSON(w, http.StatusCreated, userLoginResponse{Message: "User created successfully", User: participant})
		return
	}
	writeJSON(w, http.StatusOK, userLoginResponse{Message: "Login successful", User: participant})
}

func (a *API) userLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	if err := a.users.Logout(r.Context(), req.Email); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (a *API) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	token, err := a.auth.Login(req.Email, req.Password)
	if err != nil {
		a.logger.Info("admin login rejected", zap.String("email", req.Email))
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminLoginResponse{
		Token: token,
		User:  adminUser{Email: a.auth.adminEmail, Role: roleAdmin},
	})
}
