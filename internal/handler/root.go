package handler

import (
	"net/http"
	"time"

	"github.com/stacksift/api/internal/version"
)

type rootResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:   "StackSift API is running successfully!",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
	})
}
