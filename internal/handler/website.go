package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/website"
)

type addWebsiteRequest struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (h *Handler) AddWebsite(w http.ResponseWriter, r *http.Request) {
	var req addWebsiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site, err := h.websiteService.Submit(r.Context(), website.SubmitInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		AddedBy:     auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, website.ErrInvalidURL),
			errors.Is(err, website.ErrTitleRequired),
			errors.Is(err, website.ErrDescriptionRequired):
			validationError(w, err.Error())
		case errors.Is(err, website.ErrURLAlreadyExists):
			writeError(w, http.StatusConflict, ErrCodeConflict, "Website already exists")
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Message: "Website added!", Data: site})
}

type listWebsitesResponse struct {
	Websites      []website.Website `json:"websites"`
	TotalPages    int               `json:"totalPages"`
	CurrentPage   int               `json:"currentPage"`
	TotalWebsites int               `json:"totalWebsites"`
}

func (h *Handler) ListWebsites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.websiteRepo.List(r.Context(), website.ListParams{
		Page:         queryInt(q.Get("page")),
		Limit:        queryInt(q.Get("limit")),
		Search:       q.Get("search"),
		Category:     q.Get("category"),
		ApprovedOnly: h.requireApproval,
		ViewerID:     auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listWebsitesResponse{
		Websites:      res.Websites,
		TotalPages:    res.TotalPages,
		CurrentPage:   res.Page,
		TotalWebsites: res.Total,
	})
}

func (h *Handler) GetWebsite(w http.ResponseWriter, r *http.Request) {
	site, err := h.websiteRepo.View(r.Context(), chi.URLParam(r, "id"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, website.ErrNotFound) {
			notFound(w, "Website not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Website fetched", Data: site})
}

type upvoteResponse struct {
	Upvoted bool `json:"upvoted"`
	Upvotes int  `json:"upvotes"`
}

func (h *Handler) ToggleUpvote(w http.ResponseWriter, r *http.Request) {
	upvoted, count, err := h.websiteRepo.ToggleUpvote(r.Context(), chi.URLParam(r, "id"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, website.ErrNotFound) {
			notFound(w, "Website not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upvoteResponse{Upvoted: upvoted, Upvotes: count})
}

func (h *Handler) ApproveWebsite(w http.ResponseWriter, r *http.Request) {
	if err := h.websiteRepo.SetApproved(r.Context(), chi.URLParam(r, "id"), true); err != nil {
		if errors.Is(err, website.ErrNotFound) {
			notFound(w, "Website not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Website approved"})
}

type aiSearchRequest struct {
	Query string `json:"query"`
}

type aiSearchResponse struct {
	Websites []ai.Suggestion `json:"websites"`
}

// AISearch answers a free-text tool search from the suggestion cache or the
// model. Model failures yield an empty list, not an error.
func (h *Handler) AISearch(w http.ResponseWriter, r *http.Request) {
	var req aiSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		validationError(w, "Query is required")
		return
	}

	results, err := h.suggester.Suggest(r.Context(), req.Query)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if results == nil {
		results = []ai.Suggestion{}
	}
	writeJSON(w, http.StatusOK, aiSearchResponse{Websites: results})
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
