package customer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
)

type Handler struct {
	svc *customer.Service
}

func NewHandler(svc *customer.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/overrides/{productID}", h.setOverride)
	r.Delete("/{id}/overrides/{productID}", h.restoreOverride)
}

type customerRequest struct {
	Name            string               `json:"name"`
	Type            billing.CustomerType `json:"type"`
	ParentCompanyID *uuid.UUID           `json:"parent_company_id"`
	BillToParent    bool                 `json:"bill_to_parent"`
}

func (req customerRequest) params() customer.Params {
	return customer.Params{
		Name:            req.Name,
		Type:            req.Type,
		ParentCompanyID: req.ParentCompanyID,
		BillToParent:    req.BillToParent,
	}
}

type priceRequest struct {
	EffectiveDate render.Date `json:"effective_date"`
	Retail        float64     `json:"retail"`
	Consumer      float64     `json:"consumer"`
}

type overrideRequest struct {
	CustomItemCode    string        `json:"custom_item_code"`
	CustomDescription string        `json:"custom_description"`
	Price             *priceRequest `json:"price"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	c, err := h.svc.Create(r.Context(), req.params())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.List(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(customers))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req customerRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	c, err := h.svc.Update(r.Context(), id, req.params())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	productID, err := render.ID(r, "productID")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req overrideRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	params := customer.OverrideParams{
		ProductID:         productID,
		CustomItemCode:    req.CustomItemCode,
		CustomDescription: req.CustomDescription,
	}

	if req.Price != nil {
		params.Price = &customer.PriceParams{
			EffectiveDate: req.Price.EffectiveDate.Time(),
			Retail:        req.Price.Retail,
			Consumer:      req.Price.Consumer,
		}
	}

	o, err := h.svc.SetOverride(r.Context(), id, params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toOverride(o))
}

func (h *Handler) restoreOverride(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	productID, err := render.ID(r, "productID")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	if err := h.svc.RestoreOverride(r.Context(), id, productID); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
