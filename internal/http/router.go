package http

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/auth"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/category"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/importcsv"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/matching"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/transaction"
)

type Handlers struct {
	Auth         *auth.Handler
	Transactions *transaction.Handler
	Import       *importcsv.Handler
	Export       *export.Handler
	Matching     *matching.Handler
	Categories   *category.Handler
}

func New(h Handlers, verifier authn.Verifier, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(NewLogFormatter(os.Stdout)))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Auth.Routes(r)
		})

		r.Route("/categories", h.Categories.Routes)

		r.Route("/transactions", func(r chi.Router) {
			r.With(authn.QueryToken, authn.Middleware(verifier)).Get("/stream", h.Transactions.Stream)

			r.Group(func(r chi.Router) {
				r.Use(authn.Middleware(verifier))
				r.Use(middleware.AllowContentType("application/json"))
				h.Transactions.Routes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware(verifier))

			r.Get("/me", h.Auth.Me)

			r.Route("/import", h.Import.Routes)

			r.Route("/matching", h.Matching.Routes)

			r.Route("/export", h.Export.Routes)
		})
	})

	return router
}
