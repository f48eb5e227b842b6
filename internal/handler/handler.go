package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/collection"
	"github.com/stacksift/api/internal/email"
	"github.com/stacksift/api/internal/storage"
	"github.com/stacksift/api/internal/user"
	"github.com/stacksift/api/internal/website"
)

// Suggester answers free-text tool searches. *suggest.Service satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]ai.Suggestion, error)
}

// Handler serves the REST API.
type Handler struct {
	authService     *auth.Service
	userRepo        *user.Repository
	websiteRepo     *website.Repository
	websiteService  *website.Service
	collectionRepo  *collection.Repository
	suggester       Suggester
	emailService    *email.Service
	avatars         storage.Store
	maxAvatarSize   int64
	requireApproval bool
	logger          *slog.Logger
}

// Dependencies holds all dependencies for the Handler
type Dependencies struct {
	AuthService     *auth.Service
	UserRepo        *user.Repository
	WebsiteRepo     *website.Repository
	WebsiteService  *website.Service
	CollectionRepo  *collection.Repository
	Suggester       Suggester
	EmailService    *email.Service
	Avatars         storage.Store
	MaxAvatarSize   int64
	RequireApproval bool
	Logger          *slog.Logger
}

// New creates a new Handler with all dependencies
func New(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAvatarSize := deps.MaxAvatarSize
	if maxAvatarSize <= 0 {
		maxAvatarSize = defaultMaxAvatarSize
	}
	return &Handler{
		authService:     deps.AuthService,
		userRepo:        deps.UserRepo,
		websiteRepo:     deps.WebsiteRepo,
		websiteService:  deps.WebsiteService,
		collectionRepo:  deps.CollectionRepo,
		suggester:       deps.Suggester,
		emailService:    deps.EmailService,
		avatars:         deps.Avatars,
		maxAvatarSize:   maxAvatarSize,
		requireApproval: deps.RequireApproval,
		logger:          logger.With("component", "handler"),
	}
}

const maxJSONBody = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type dataResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v. On failure it writes a 400
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Request body is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, "Invalid value for field "+typeErr.Field)
	case isEmailValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, "Invalid email address")
	default:
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid JSON body")
	}
	return false
}

// internalError logs err and answers 500 without exposing details.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("unhandled handler error",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
}
