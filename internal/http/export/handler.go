package export

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/pocketbook/internal/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.download)
}

// download exports the view selected by the query parameters as an
// attachment.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filters, err := transaction.ParseFilters(q.Get("search"), q.Get("category"), q.Get("type"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	sortOpt, err := transaction.ParseSortOption(q.Get("sort"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.Export(r.Context(), authn.UserID(r.Context()), filters, sortOpt)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still be reported.
	var buf bytes.Buffer
	if err := h.svc.Write(&buf, format, txs); err != nil {
		respond.Error(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == export.FormatText {
		contentType = "text/plain; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(format, h.now())))

	_, _ = buf.WriteTo(w)
}
