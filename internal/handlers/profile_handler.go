package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
	"github.com/laibashaikh28/twee-webapp/internal/middleware"
	"github.com/laibashaikh28/twee-webapp/internal/models"
	"github.com/laibashaikh28/twee-webapp/internal/services"
)

// UserLookup resolves a uid against the auth provider's user records.
type UserLookup interface {
	LookupUser(ctx context.Context, uid string) (*auth.User, error)
}

type ProfileHandler struct {
	profiles  *services.ProfileService
	users     UserLookup
	maxSizeMB int64
	log       *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, users UserLookup, maxSizeMB int64, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, users: users, maxSizeMB: maxSizeMB, log: log}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		h.log.Error("get profile failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// ReplaceProfile writes the request body as the whole profile document.
func (h *ProfileHandler) ReplaceProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.Profile
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := validateStruct(req); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.ReplaceProfile(ctx, userID, req)
	if err != nil {
		h.log.Error("replace profile failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// UploadAvatar stores the image and returns its URL. The profile is not
// changed; the client puts the URL into the next profile write.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	file, header, ok := readImage(w, r, "avatar", h.maxSizeMB)
	if !ok {
		return
	}
	defer file.Close()

	res, err := h.profiles.UploadAvatar(r.Context(), header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidFilename) {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid file name"))
			return
		}
		h.log.Error("avatar upload failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload image"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(res))
}

// GetPublicProfile returns the profile of userId without email or contact.
func (h *ProfileHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetProfile(ctx, targetID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof.Public(targetID)))
		return
	case !errors.Is(err, services.ErrProfileNotFound):
		h.log.Error("get public profile failed", zap.String("target_id", targetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	// No profile document yet: fall back to the auth user record.
	if h.users == nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}
	u, err := h.users.LookupUser(ctx, targetID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.PublicProfile{
		UserID:   targetID,
		FullName: u.DisplayName,
	}))
}

// GetUserPosts returns userId's posts, or the empty state when there are none.
func (h *ProfileHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.profiles.ProfileView(ctx, targetID)
	if err != nil {
		h.log.Error("list posts failed", zap.String("target_id", targetID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load posts"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(view))
}
