// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paintquote-ai/quote-platform/internal/conversation"
	"github.com/paintquote-ai/quote-platform/internal/middleware"
	"github.com/paintquote-ai/quote-platform/internal/model"
	"github.com/paintquote-ai/quote-platform/pkg/logger"
)

// SessionHandler handles quote-session endpoints.
type SessionHandler struct {
	manager *conversation.Manager
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *conversation.Manager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  log,
	}
}

// Start handles POST /api/v1/quote-sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := middleware.GetCompanyID(ctx)

	if err := middleware.ValidateCompanyID(companyID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.StartSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV7()).String()
	} else if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, prompt, err := h.manager.Initialize(ctx, sessionID, companyID)
	if err != nil {
		h.logger.Error("failed to initialize session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	writeJSON(w, http.StatusCreated, model.StartSessionResponse{
		SessionID: state.SessionID,
		Step:      state.CurrentStep,
		Prompt:    prompt,
	})
}

// SendInput handles POST /api/v1/quote-sessions/:id/messages
func (h *SessionHandler) SendInput(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ownsSession(w, r, sessionID) {
		return
	}

	var req model.SendInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateInputText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.manager.ProcessInput(ctx, sessionID, req.Text)
	if err != nil {
		h.writeManagerError(w, sessionID, err, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/quote-sessions/:id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.manager.GetState(sessionID)
	if err != nil {
		h.writeManagerError(w, sessionID, err, nil)
		return
	}

	if state.CompanyID != middleware.GetCompanyID(r.Context()) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Reset handles POST /api/v1/quote-sessions/:id/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ownsSession(w, r, sessionID) {
		return
	}

	var req model.ResetSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStepID(req.Step); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.manager.ResetToStep(ctx, sessionID, req.Step)
	if err != nil {
		h.writeManagerError(w, sessionID, err, nil)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown step")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// Complete handles POST /api/v1/quote-sessions/:id/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ownsSession(w, r, sessionID) {
		return
	}

	quote, err := h.manager.ForceComplete(ctx, sessionID)
	if err != nil {
		h.writeManagerError(w, sessionID, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// Delete handles DELETE /api/v1/quote-sessions/:id
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.ownsSession(w, r, sessionID) {
		return
	}

	if err := h.manager.Delete(sessionID); err != nil {
		h.writeManagerError(w, sessionID, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Cleanup handles POST /api/v1/admin/cleanup
func (h *SessionHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.manager.CleanupExpired(r.Context())
	writeJSON(w, http.StatusOK, model.CleanupResponse{Removed: removed})
}

// ownsSession verifies the session belongs to the caller's company.
func (h *SessionHandler) ownsSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	state, err := h.manager.GetState(sessionID)
	if err != nil {
		h.writeManagerError(w, sessionID, err, nil)
		return false
	}
	if state.CompanyID != middleware.GetCompanyID(r.Context()) {
		writeError(w, http.StatusNotFound, "session not found")
		return false
	}
	return true
}

func (h *SessionHandler) writeManagerError(w http.ResponseWriter, sessionID string, err error, result *model.ProcessResult) {
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, conversation.ErrSessionExpired):
		writeError(w, http.StatusGone, "session expired, please start a new one")
	case errors.Is(err, conversation.ErrInvalidStep):
		h.logger.Error("step registry defect",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if result != nil {
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}
		writeError(w, http.StatusInternalServerError, "something went wrong, please restart")
	default:
		h.logger.Error("session operation failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
