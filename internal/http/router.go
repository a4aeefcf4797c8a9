package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/tally/internal/http/customer"
	"github.com/MrJamesThe3rd/tally/internal/http/invoice"
	"github.com/MrJamesThe3rd/tally/internal/http/payment"
	"github.com/MrJamesThe3rd/tally/internal/http/product"
	"github.com/MrJamesThe3rd/tally/internal/http/statement"
)

type Handlers struct {
	Customers  *customer.Handler
	Products   *product.Handler
	Invoices   *invoice.Handler
	Quotes     *invoice.QuoteHandler
	Payments   *payment.Handler
	Statements *statement.Handler
}

func New(h Handlers, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Customers.Routes(r)
		})

		r.Route("/products", h.Products.Routes)

		r.Route("/invoices", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Invoices.Routes(r)
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Quotes.Routes(r)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Payments.Routes(r)
		})

		r.Route("/statements", h.Statements.Routes)
	})

	return router
}
