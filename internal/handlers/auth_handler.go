package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/models"
)

// AuthHandler serves password login against the local accounts file. It is
// only mounted when AUTH_MODE=local; Firebase clients get their ID token from
// the Firebase SDK.
type AuthHandler struct {
	local *auth.LocalAuth
	log   *zap.Logger
}

func NewAuthHandler(local *auth.LocalAuth, log *zap.Logger) *AuthHandler {
	return &AuthHandler{local: local, log: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := validateStruct(req); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	token, acct, err := h.local.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		h.log.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *acct,
	}))
}
