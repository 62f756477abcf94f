package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/middleware"
	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/services"
	"github.com/laibashaikh28/twee-webapp/internal/session"
)

// SessionHandler exposes server-side profile page sessions. A client creates
// one when the page mounts, polls its view, drives the editor through it and
// deletes it when the page unmounts.
type SessionHandler struct {
	sessions  *session.Manager
	maxSizeMB int64
	log       *zap.Logger
}

func NewSessionHandler(sessions *session.Manager, maxSizeMB int64, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, maxSizeMB: maxSizeMB, log: log}
}

type createSessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.UID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	id, sess := h.sessions.Create(user)
	view, err := sess.View(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(createSessionResponse{ID: id, View: view}))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.sessions.Remove(chi.URLParam(r, "sessionId"), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Session closed"}))
}

// SignIn publishes the caller's verified identity to the session, which
// reloads the profile and posts. Only the session's owner may sign it back in.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user.UID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	if err := h.sessions.SignIn(chi.URLParam(r, "sessionId"), user.UID, user); err != nil {
		h.writeError(w, err)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

// SignOut publishes a sign-out to the session. The session stays mounted and
// keeps showing what it last loaded.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.sessions.SignOut(chi.URLParam(r, "sessionId"), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Signed out"}))
}

func (h *SessionHandler) OpenEditor(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.OpenEditor(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

func (h *SessionHandler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.CloseEditor(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

// UpdateForm applies {"field": "value"} pairs to the editor form.
func (h *SessionHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	invalid := make(map[string]string)
	for field, value := range req {
		if err := sess.SetField(r.Context(), session.Field(field), value); err != nil {
			switch {
			case errors.Is(err, session.ErrUnknownField):
				invalid[field] = "unknown field"
			case errors.Is(err, session.ErrFieldNotEditable):
				invalid[field] = "field is not editable"
			default:
				h.writeError(w, err)
				return
			}
		}
	}
	if len(invalid) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(invalid))
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

func (h *SessionHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	file, header, ok := readImage(w, r, "avatar", h.maxSizeMB)
	if !ok {
		return
	}
	defer file.Close()

	url, err := sess.UploadAvatar(r.Context(), header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.AvatarUploadResponse{URL: url}))
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := sess.Submit(ctx); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, r, sess, http.StatusOK)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return nil, false
	}
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionId"), userID)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) writeView(w http.ResponseWriter, r *http.Request, sess *session.Session, status int) {
	view, err := sess.View(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, status, models.NewSuccessResponse(view))
}

func (h *SessionHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Session not found"))
	case session.IsClosed(err):
		writeJSON(w, http.StatusGone, models.NewErrorResponse("Session closed"))
	case errors.Is(err, session.ErrNotSignedIn):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Not signed in"))
	case errors.Is(err, session.ErrEditorClosed):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Profile editor is not open"))
	case errors.Is(err, session.ErrSaveInProgress):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Profile save already in progress"))
	case errors.Is(err, services.ErrInvalidFilename):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid file name"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, models.NewErrorResponse("Request timed out"))
	default:
		h.log.Error("session operation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Operation failed"))
	}
}
