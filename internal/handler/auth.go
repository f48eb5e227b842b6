package handler

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime/types"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/user"
)

type registerRequest struct {
	Name     string      `json:"name"`
	Email    types.Email `json:"email"`
	Password string      `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    string(req.Email),
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNameRequired),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrPasswordRequired),
			errors.Is(err, auth.ErrPasswordTooShort):
			validationError(w, err.Error())
		case errors.Is(err, user.ErrEmailAlreadyInUse):
			writeError(w, http.StatusConflict, ErrCodeConflict, "User already exists")
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Message: "User registered successfully", Data: userToAPI(u)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message      string  `json:"message"`
	User         apiUser `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), auth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Invalid email or password")
		case errors.Is(err, auth.ErrGoogleAccount):
			writeError(w, http.StatusBadRequest, ErrCodeValidationError, "Did you sign up with Google?")
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

type tokenRequest struct {
	Token string `json:"token"`
}

type refreshResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Refresh token is required")
		return
	}

	access, err := h.authService.Refresh(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Invalid or expired refresh token")
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Message: "Token refreshed", AccessToken: access})
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		validationError(w, "Google token is required")
		return
	}

	session, err := h.authService.GoogleLogin(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrGoogleDisabled):
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Google sign-in is not available")
		case errors.Is(err, auth.ErrGoogleTokenInvalid):
			writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Invalid Google token")
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.VerifyPassword(r.Context(), auth.UserIDFromContext(r.Context()), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordRequired):
			validationError(w, "Password is required")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, ErrCodeNotAuthenticated, "Incorrect password")
		case errors.Is(err, user.ErrUserNotFound):
			unauthorized(w)
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password verified"})
}

func newSessionResponse(message string, s *auth.Session) sessionResponse {
	return sessionResponse{
		Message:      message,
		User:         userToAPI(s.User),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}
