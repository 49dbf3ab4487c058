package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mentorhub/interview-service/src/internal/api/apiErrors"
	"github.com/mentorhub/interview-service/src/internal/model"
	"github.com/mentorhub/interview-service/src/internal/service"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

func RegisterRoutes(r *chi.Mux, h *Handler) {
	r.Post("/interviews/create", withTimeout(h.createInterview))
	r.Post("/interviews/update", withTimeout(h.updateInterview))
	r.Get("/interviews/get", withTimeout(h.getInterview))
	r.Get("/interviews/list", withTimeout(h.listInterviews))
	r.Get("/interviews/listMine", withTimeout(h.listMine))
	r.Post("/interviews/feedback", withTimeout(h.submitFeedback))
	r.Post("/users/add", withTimeout(h.createUser))
	r.Get("/users/get", withTimeout(h.getUser))
	r.Get("/groups/get", withTimeout(h.getGroup))
	r.Get("/stats", withTimeout(h.getStats))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

type interviewRequest struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	IntervieweeID  string   `json:"interviewee_id"`
	InterviewerIDs []string `json:"interviewer_ids"`
}

func (h *Handler) createInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IntervieweeID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "type and interviewee_id required")
		return
	}
	t, ok := model.ParseInterviewType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "type must be MenteeInterview or MentorInterview")
		return
	}
	id, err := h.svc.CreateInterview(r.Context(), t, req.IntervieweeID, req.InterviewerIDs)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"interview_id": id})
}

func (h *Handler) updateInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.IntervieweeID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "id, type and interviewee_id required")
		return
	}
	t, ok := model.ParseInterviewType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "type must be MenteeInterview or MentorInterview")
		return
	}
	if err := h.svc.UpdateInterview(r.Context(), req.ID, t, req.IntervieweeID, req.InterviewerIDs); err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interview_id": req.ID})
}

func (h *Handler) getInterview(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "id required")
		return
	}
	iv, err := h.svc.GetInterview(r.Context(), id)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interview": iv})
}

func (h *Handler) listInterviews(w http.ResponseWriter, r *http.Request) {
	t, ok := model.ParseInterviewType(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "type must be MenteeInterview or MentorInterview")
		return
	}
	ivs, err := h.svc.ListInterviews(r.Context(), t)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": ivs})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "user_id required")
		return
	}
	ivs, err := h.svc.ListInterviewsForInterviewer(r.Context(), userID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": ivs})
}

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InterviewID   string `json:"interview_id"`
		InterviewerID string `json:"interviewer_id"`
		Feedback      string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InterviewID == "" || req.InterviewerID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "interview_id and interviewer_id required")
		return
	}
	f, err := h.svc.SubmitFeedback(r.Context(), req.InterviewID, req.InterviewerID, req.Feedback)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignment": f})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil || u.Name == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "name required")
		return
	}
	created, err := h.svc.CreateUser(r.Context(), u)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": created})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "user_id required")
		return
	}
	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.InternalError, "interview_id required")
		return
	}
	g, err := h.svc.GetGroupByInterview(r.Context(), interviewID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": g})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": errCode, "message": message},
	})
}

func handleSvcError(w http.ResponseWriter, err error) {
	var e apiErrors.APIError
	switch {
	case errors.As(err, &e):
		switch e.Code {
		case apiErrors.InvalidAssignment:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.TypeMismatch:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.IntervieweeLocked:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.InterviewerLocked:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.NotFound:
			writeError(w, http.StatusNotFound, e.Code, e.Message)
		default:
			writeError(w, http.StatusInternalServerError, apiErrors.InternalError, e.Message)
		}
	default:
		writeError(w, http.StatusInternalServerError, apiErrors.InternalError, err.Error())
	}
}
