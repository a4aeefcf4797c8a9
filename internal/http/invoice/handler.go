package invoice

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/finalize", h.finalize)
}

type lineRequest struct {
	ID          *uuid.UUID `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Quantity    float64    `json:"quantity"`
	Description string     `json:"description"`
	UnitPrice   *float64   `json:"unit_price"`
}

func toLineParams(lines []lineRequest) []invoice.LineParams {
	params := make([]invoice.LineParams, len(lines))
	for i, l := range lines {
		params[i] = invoice.LineParams(l)
	}

	return params
}

type draftRequest struct {
	CustomerID uuid.UUID     `json:"customer_id"`
	Date       *render.Date  `json:"date"`
	DueDate    *render.Date  `json:"due_date"`
	Lines      []lineRequest `json:"lines"`
	Shipping   *float64      `json:"shipping"`
	Notes      string        `json:"notes"`
}

func (req draftRequest) params() invoice.DraftParams {
	return invoice.DraftParams{
		CustomerID: req.CustomerID,
		Date:       req.Date.Time(),
		DueDate:    req.DueDate.Ptr(),
		Lines:      toLineParams(req.Lines),
		Shipping:   req.Shipping,
		Notes:      req.Notes,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	inv, err := h.svc.CreateDraft(r.Context(), req.params())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.respond(w, r, http.StatusCreated, inv.ID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := render.QueryID(r, "customer_id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	filter := invoice.ListFilter{CustomerID: customerID}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(billing.InvoiceStatus(s))
	}

	views, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toInvoiceList(views))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	h.respond(w, r, http.StatusOK, id)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req draftRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if _, err := h.svc.UpdateDraft(r.Context(), id, req.params()); err != nil {
		render.Error(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, id)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if err := h.svc.DeleteDraft(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if _, err := h.svc.Finalize(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, id)
}

// respond writes the invoice with its derived amounts.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID) {
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, status, toInvoice(v))
}
