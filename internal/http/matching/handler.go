package matching

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	"github.com/MrJamesThe3rd/pocketbook/internal/matching"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
}

type suggestResponse struct {
	Title    string               `json:"title"`
	Category transaction.Category `json:"category"`
	Matched  bool                 `json:"matched"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		http.Error(w, "title query parameter is required", http.StatusBadRequest)
		return
	}

	category, matched, err := h.svc.Suggest(r.Context(), authn.UserID(r.Context()), title)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if !matched {
		category = transaction.CategoryOther
	}

	respond.JSON(w, http.StatusOK, suggestResponse{
		Title:    title,
		Category: category,
		Matched:  matched,
	})
}
