package payment

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/payment"
)

type Handler struct {
	svc *payment.Service
	now func() time.Time
}

func NewHandler(svc *payment.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.edit)
	r.Delete("/{id}", h.delete)
}

type paymentRequest struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	Date        *render.Date    `json:"date"`
	TotalAmount float64         `json:"total_amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Allocations []allocationDTO `json:"allocations"`
}

// params defaults a missing date to today.
func (h *Handler) params(req paymentRequest) payment.Params {
	date := req.Date.Time()
	if date.IsZero() {
		date = h.now()
	}

	allocs := make([]billing.PaymentAllocation, len(req.Allocations))
	for i, a := range req.Allocations {
		allocs[i] = billing.PaymentAllocation(a)
	}

	return payment.Params{
		CustomerID:  req.CustomerID,
		Date:        date,
		TotalAmount: req.TotalAmount,
		Method:      req.Method,
		Reference:   req.Reference,
		Allocations: allocs,
	}
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	res, err := h.svc.Record(r.Context(), h.params(req))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, resultResponse{
		Payment:       toResponse(&res.Payment),
		StatusChanges: toChanges(res.StatusChanges),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter payment.ListFilter
		err    error
	)

	if filter.CustomerID, err = render.QueryID(r, "customer_id"); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if filter.StartDate, err = render.QueryDate(r, "start_date"); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if filter.EndDate, err = render.QueryDate(r, "end_date"); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	payments, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(payments))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req paymentRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	res, err := h.svc.Edit(r.Context(), id, h.params(req))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, resultResponse{
		Payment:       toResponse(&res.Payment),
		StatusChanges: toChanges(res.StatusChanges),
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	changes, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, map[string]any{"status_changes": toChanges(changes)})
}
