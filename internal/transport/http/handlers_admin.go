package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

type durationRequest struct {
	Duration int `json:"duration"`
}

type toggleRequest struct {
	IsLive *bool `json:"isLive"`
}

type toggleResponse struct {
	Success bool `json:"success"`
	IsLive  bool `json:"isLive"`
}

type timerRequest struct {
	Timer int `json:"timer"`
}

type questionRequest struct {
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Timer              int      `json:"timer"`
}

func (q questionRequest) draft() app.QuestionDraft {
	return app.QuestionDraft{
		Text:               q.Text,
		Options:            q.Options,
		CorrectOptionIndex: q.CorrectOptionIndex,
		Timer:              q.Timer,
	}
}

type resultsResponse struct {
	Results  []domain.Result `json:"results"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settings.Settings(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) putDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	settings, err := a.settings.SetDuration(r.Context(), req.Duration)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) toggleStatus(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	if req.IsLive == nil {
		writeServiceError(w, a.logger, r, domain.Invalid("isLive", "is required"))
		return
	}
	settings, err := a.settings.SetLive(r.Context(), *req.IsLive)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Success: true, IsLive: settings.IsLive})
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := a.questions.List(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	q, err := a.questions.Create(r.Context(), req.draft())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.questions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	q, err := a.questions.Update(r.Context(), r.PathValue("id"), req.draft())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	a.removeQuestion(w, r, r.PathValue("id"))
}

func (a *API) deleteQuestionByQuery(w http.ResponseWriter, r *http.Request) {
	a.removeQuestion(w, r, r.URL.Query().Get("id"))
}

func (a *API) removeQuestion(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.questions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Question deleted successfully"})
}

func (a *API) deleteAllQuestions(w http.ResponseWriter, r *http.Request) {
	n, err := a.questions.DeleteAll(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "All questions deleted successfully", Count: &n})
}

func (a *API) putQuestionTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	if err := a.questions.SetTimerForAll(r.Context(), req.Timer); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Timer updated successfully"})
}

func (a *API) listResults(w http.ResponseWriter, r *http.Request) {
	query, err := resultQueryFrom(r)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	page, err := parseIntParam(r, "page", 1)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	pageSize, err := parseIntParam(r, "page_size", 0)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}

	view, err := a.results.List(r.Context(), query)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	paged := domain.Page(view, page, pageSize)
	if paged == nil {
		paged = []domain.Result{}
	}
	writeJSON(w, http.StatusOK, resultsResponse{
		Results:  paged,
		Total:    len(view),
		Page:     page,
		PageSize: pageSize,
	})
}

// exportResults streams the filtered and sorted view as CSV; pagination never applies.
func (a *API) exportResults(w http.ResponseWriter, r *http.Request) {
	query, err := resultQueryFrom(r)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	if err := query.Validate(); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}

	var buf strings.Builder
	n, err := a.results.Export(r.Context(), query, &buf)
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	filename := fmt.Sprintf("quiz-results-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(buf.String()))
	a.logger.Info("results exported", zap.Int("rows", n))
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := a.results.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteResult(w http.ResponseWriter, r *http.Request) {
	if err := a.results.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Result deleted successfully"})
}

func (a *API) deleteAllResults(w http.ResponseWriter, r *http.Request) {
	n, err := a.results.DeleteAll(r.Context())
	if err != nil {
		writeServiceError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "All results deleted successfully", Count: &n})
}
