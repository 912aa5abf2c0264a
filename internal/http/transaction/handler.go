package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

const summaryMonths = 6

type Handler struct {
	svc  *transaction.Service
	goal decimal.Decimal
	now  func() time.Time
}

func NewHandler(svc *transaction.Service, goal decimal.Decimal) *Handler {
	return &Handler{svc: svc, goal: goal, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req Params
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, err := req.CreateParams()
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), authn.UserID(r.Context()), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(tx))
}

// viewParams reads the filter and sort query parameters shared by list,
// summary and stream.
func viewParams(r *http.Request) (transaction.Filters, transaction.SortOption, error) {
	q := r.URL.Query()

	filters, err := transaction.ParseFilters(q.Get("search"), q.Get("category"), q.Get("type"))
	if err != nil {
		return transaction.Filters{}, "", err
	}

	sortOpt, err := transaction.ParseSortOption(q.Get("sort"))
	if err != nil {
		return transaction.Filters{}, "", err
	}

	return filters, sortOpt, nil
}

// goalParam reads the optional goal override, defaulting to the configured
// savings goal.
func (h *Handler) goalParam(r *http.Request) (decimal.Decimal, error) {
	s := r.URL.Query().Get("goal")
	if s == "" {
		return h.goal, nil
	}

	goal, err := transaction.ParseAmount(s)
	if err != nil {
		var ve *transaction.ValidationError
		if errors.As(err, &ve) {
			return decimal.Zero, &transaction.ValidationError{Field: "goal", Reason: ve.Reason}
		}

		return decimal.Zero, err
	}

	return goal, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, sortOpt, err := viewParams(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), authn.UserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponseList(transaction.View(txs, filters, sortOpt)))
}

// summary reports the metrics of the full set, ignoring any filters.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	goal, err := h.goalParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), authn.UserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	months := transaction.MonthlyTotals(txs, h.now(), summaryMonths)
	respond.JSON(w, http.StatusOK, toSummary(transaction.Summarize(txs), goal, months))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), authn.UserID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch, err := req.patch()
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	userID := authn.UserID(r.Context())

	if err := h.svc.Update(r.Context(), userID, id, patch); err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(tx))
}

// delete succeeds for transactions that are already gone.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := h.svc.Delete(r.Context(), authn.UserID(r.Context()), id)
	if err != nil && !errors.Is(err, transaction.ErrNotFound) {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}
