package category

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type categoryResponse struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	categories := transaction.Categories()

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{Name: string(c), Icon: c.Icon()})
	}

	respond.JSON(w, http.StatusOK, resp)
}
