package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	"github.com/MrJamesThe3rd/pocketbook/internal/mirror"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

const keepAlive = 15 * time.Second

type streamEvent struct {
	Transactions []Response      `json:"transactions"`
	Summary      summaryResponse `json:"summary"`
}

// Stream pushes the filtered view and summary as server-sent events, once on
// connect and again whenever the user's transactions change. Each connection
// runs its own mirror for the authenticated user.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	filters, sortOpt, err := viewParams(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	goal, err := h.goalParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	userID := authn.UserID(r.Context())

	m := mirror.New(h.svc)
	defer m.Close()

	// Watch before subscribing so the first snapshot is not missed.
	ch, stop := m.Watch()
	defer stop()

	if err := m.SetIdentity(r.Context(), userID); err != nil {
		respond.Error(w, r, err)
		return
	}

	// The server's write timeout must not cut the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("clearing stream write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	var sent uint64

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if m.State() == mirror.Unsubscribed {
				return
			}

			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}

			flusher.Flush()
		case _, ok := <-ch:
			if !ok {
				return
			}

			txs, version, synced := m.Current()
			if !synced || version == sent {
				continue
			}

			sent = version

			if err := h.writeEvent(w, txs, filters, sortOpt, goal); err != nil {
				slog.Debug("stream client gone", "user_id", userID, "error", err)
				return
			}

			flusher.Flush()
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, txs []transaction.Transaction, filters transaction.Filters, sortOpt transaction.SortOption, goal decimal.Decimal) error {
	event := streamEvent{
		Transactions: ToResponseList(transaction.View(txs, filters, sortOpt)),
		Summary:      toSummary(transaction.Summarize(txs), goal, transaction.MonthlyTotals(txs, h.now(), summaryMonths)),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)

	return err
}
