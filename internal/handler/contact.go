package handler

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime/types"
	"github.com/stacksift/api/internal/email"
)

type contactRequest struct {
	Name    string      `json:"name"`
	Email   types.Email `json:"email"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.emailService.SendContact(r.Context(), email.ContactMessage{
		Name:    req.Name,
		Email:   string(req.Email),
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		if errors.Is(err, email.ErrContactIncomplete) {
			validationError(w, "Name, email and message are required")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Message sent"})
}
