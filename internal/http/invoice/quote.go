package invoice

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type QuoteHandler struct {
	svc *invoice.Service
}

func NewQuoteHandler(svc *invoice.Service) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

func (h *QuoteHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/convert", h.convert)
}

type quoteRequest struct {
	CustomerID uuid.UUID     `json:"customer_id"`
	Date       *render.Date  `json:"date"`
	ValidUntil *render.Date  `json:"valid_until"`
	Lines      []lineRequest `json:"lines"`
	Shipping   *float64      `json:"shipping"`
	Notes      string        `json:"notes"`
}

type convertRequest struct {
	DueDate *render.Date `json:"due_date"`
}

func (h *QuoteHandler) create(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	q, err := h.svc.CreateQuote(r.Context(), invoice.QuoteParams{
		CustomerID: req.CustomerID,
		Date:       req.Date.Time(),
		ValidUntil: req.ValidUntil.Ptr(),
		Lines:      toLineParams(req.Lines),
		Shipping:   req.Shipping,
		Notes:      req.Notes,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.respond(w, r, http.StatusCreated, q.ID)
}

func (h *QuoteHandler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := render.QueryID(r, "customer_id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	views, err := h.svc.ListQuotes(r.Context(), customerID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toQuoteList(views))
}

func (h *QuoteHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	h.respond(w, r, http.StatusOK, id)
}

func (h *QuoteHandler) accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.AcceptQuote)
}

func (h *QuoteHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.RejectQuote)
}

func (h *QuoteHandler) decide(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) error) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if err := apply(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, id)
}

func (h *QuoteHandler) convert(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	// The body is optional.
	var req convertRequest
	if err := render.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		render.BadRequest(w, "%v", err)
		return
	}

	inv, err := h.svc.ConvertQuote(r.Context(), id, req.DueDate.Ptr())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	v, err := h.svc.Get(r.Context(), inv.ID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toInvoice(v))
}

func (h *QuoteHandler) respond(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID) {
	v, err := h.svc.GetQuote(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, status, toQuote(v))
}
