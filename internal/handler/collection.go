package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/collection"
)

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.collectionRepo.ListByUser(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Collections fetched", Data: collections})
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.collectionRepo.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, collection.ErrNameRequired):
			validationError(w, "Folder name is required")
		case errors.Is(err, collection.ErrNameTaken):
			validationError(w, "Folder already exists")
		default:
			h.internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Message: "Collection created", Data: c})
}

type collectionWebsiteRequest struct {
	WebsiteID string `json:"websiteId"`
}

func (h *Handler) AddToCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionWebsiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WebsiteID == "" {
		validationError(w, "websiteId is required")
		return
	}

	err := h.collectionRepo.AddWebsite(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.WebsiteID)
	if err != nil {
		h.collectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Website added to collection"})
}

func (h *Handler) RemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionWebsiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WebsiteID == "" {
		validationError(w, "websiteId is required")
		return
	}

	err := h.collectionRepo.RemoveWebsite(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.WebsiteID)
	if err != nil {
		h.collectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Website removed from collection"})
}

func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	err := h.collectionRepo.Delete(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.collectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Collection deleted"})
}

func (h *Handler) collectionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, collection.ErrNotFound):
		notFound(w, "Collection not found")
	case errors.Is(err, collection.ErrWebsiteNotFound):
		notFound(w, "Website not found")
	default:
		h.internalError(w, r, err)
	}
}
