package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/gravatar"
	"github.com/stacksift/api/internal/storage"
	"github.com/stacksift/api/internal/user"
	"golang.org/x/sync/errgroup"
)

type apiUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatarUrl"`
	Roles         []string  `json:"roles"`
	Bio           string    `json:"bio"`
	CoverGradient string    `json:"coverGradient"`
	HasPassword   bool      `json:"hasPassword"`
	GoogleLinked  bool      `json:"googleLinked"`
	CreatedAt     time.Time `json:"createdAt"`
}

// userToAPI converts a user to its public representation. Users without an
// avatar get a Gravatar URL.
func userToAPI(u *user.User) apiUser {
	avatarURL := gravatar.URL(u.Email, gravatar.DefaultSize)
	if u.AvatarURL != nil && *u.AvatarURL != "" {
		avatarURL = *u.AvatarURL
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return apiUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		AvatarURL:     avatarURL,
		Roles:         roles,
		Bio:           u.Bio,
		CoverGradient: u.CoverGradient,
		HasPassword:   u.HasPassword(),
		GoogleLinked:  u.GoogleID != nil,
		CreatedAt:     u.CreatedAt,
	}
}

// currentUser loads the authenticated user, answering 401 if it no longer exists.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, err := h.userRepo.GetByID(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			unauthorized(w)
			return nil, false
		}
		h.internalError(w, r, err)
		return nil, false
	}
	return u, true
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Profile fetched", Data: userToAPI(u)})
}

type updateProfileRequest struct {
	Name          *string `json:"name"`
	Bio           *string `json:"bio"`
	Password      *string `json:"password"`
	CoverGradient *string `json:"coverGradient"`
}

const (
	maxBioLength      = 500
	maxGradientLength = 64
)

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			validationError(w, "Name cannot be empty")
			return
		}
		u.Name = name
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			validationError(w, "Bio is too long")
			return
		}
		u.Bio = bio
	}
	if req.CoverGradient != nil {
		gradient := strings.TrimSpace(*req.CoverGradient)
		if gradient == "" {
			gradient = user.DefaultCoverGradient
		}
		if len(gradient) > maxGradientLength {
			validationError(w, "Cover gradient is too long")
			return
		}
		u.CoverGradient = gradient
	}

	if req.Password != nil && *req.Password != "" {
		if err := h.authService.SetPassword(r.Context(), u.ID, *req.Password); err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				validationError(w, err.Error())
				return
			}
			h.internalError(w, r, err)
			return
		}
	}

	if err := h.userRepo.Update(r.Context(), u); err != nil {
		h.internalError(w, r, err)
		return
	}

	updated, err := h.userRepo.GetByID(r.Context(), u.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Profile updated", Data: userToAPI(updated)})
}

const defaultMaxAvatarSize = 5 * 1024 * 1024 // 5MB

// Allowed avatar content types
var avatarAllowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type avatarResponse struct {
	Message   string `json:"message"`
	AvatarURL string `json:"avatarUrl"`
}

// UploadAvatar stores the multipart field "avatar" and replaces the user's
// previous uploaded avatar.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarSize+1<<20)
	part, err := avatarPart(r)
	if err != nil {
		validationError(w, "No file provided")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, h.maxAvatarSize+1))
	if err != nil {
		validationError(w, "Could not read upload")
		return
	}
	if int64(len(data)) > h.maxAvatarSize {
		validationError(w, "File too large. Maximum size is 5MB")
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := avatarAllowedTypes[contentType]
	if !ok {
		validationError(w, "Invalid file type. Allowed: JPEG, PNG, WebP")
		return
	}

	avatarURL, err := h.avatars.Put(r.Context(), ulid.Make().String()+ext, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	previous := u.AvatarURL
	u.AvatarURL = &avatarURL
	if err := h.userRepo.Update(r.Context(), u); err != nil {
		if name, ok := h.avatars.NameFromURL(avatarURL); ok {
			_ = h.avatars.Delete(r.Context(), name)
		}
		h.internalError(w, r, err)
		return
	}
	h.removeStoredAvatar(r, previous)

	writeJSON(w, http.StatusOK, avatarResponse{Message: "Avatar updated", AvatarURL: avatarURL})
}

// DeleteAvatar removes the user's uploaded avatar, falling back to Gravatar.
func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	previous := u.AvatarURL
	u.AvatarURL = nil
	if err := h.userRepo.Update(r.Context(), u); err != nil {
		h.internalError(w, r, err)
		return
	}
	h.removeStoredAvatar(r, previous)

	writeJSON(w, http.StatusOK, avatarResponse{Message: "Avatar removed", AvatarURL: userToAPI(u).AvatarURL})
}

// removeStoredAvatar deletes an avatar object we own. External URLs such as
// Google profile pictures are left alone.
func (h *Handler) removeStoredAvatar(r *http.Request, avatarURL *string) {
	if avatarURL == nil {
		return
	}
	name, ok := h.avatars.NameFromURL(*avatarURL)
	if !ok {
		return
	}
	if err := h.avatars.Delete(r.Context(), name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Warn("failed to delete previous avatar", "name", name, "error", err)
	}
}

func avatarPart(r *http.Request) (*multipart.Part, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "avatar" {
			return part, nil
		}
		part.Close()
	}
}

// ServeAvatar serves avatars kept on local disk (called manually from router)
func (h *Handler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	local, ok := h.avatars.(*storage.LocalStore)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	local.Serve(w, r, chi.URLParam(r, "name"))
}

type statsResponse struct {
	Tools       int `json:"tools"`
	Collections int `json:"collections"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var stats statsResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.websiteRepo.CountByUser(ctx, userID)
		stats.Tools = n
		return err
	})
	g.Go(func() error {
		n, err := h.collectionRepo.CountByUser(ctx, userID)
		stats.Collections = n
		return err
	})
	if err := g.Wait(); err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
