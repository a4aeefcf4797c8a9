package product

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/product"
)

type Handler struct {
	svc       *product.Service
	importSvc *importer.Service
}

func NewHandler(svc *product.Service, importSvc *importer.Service) *Handler {
	return &Handler{svc: svc, importSvc: importSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/import", h.importPrices)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/prices", h.addPrice)
	})

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/price", h.resolvePrice)
}

type productRequest struct {
	ItemCode    string        `json:"item_code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       *priceRequest `json:"price,omitempty"`
}

func (req productRequest) params() product.Params {
	return product.Params{ItemCode: req.ItemCode, Name: req.Name, Description: req.Description}
}

type priceRequest struct {
	EffectiveDate render.Date `json:"effective_date"`
	Retail        float64     `json:"retail"`
	Consumer      float64     `json:"consumer"`
}

func (req priceRequest) params() product.PriceParams {
	return product.PriceParams{
		EffectiveDate: req.EffectiveDate.Time(),
		Retail:        req.Retail,
		Consumer:      req.Consumer,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var initial *product.PriceParams
	if req.Price != nil {
		initial = new(req.Price.params())
	}

	p, err := h.svc.Create(r.Context(), req.params(), initial)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponseList(products))
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

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req productRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	p, err := h.svc.Update(r.Context(), id, req.params())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) addPrice(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	var req priceRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	price, err := h.svc.AddPrice(r.Context(), id, req.params())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toPrice(*price))
}

func (h *Handler) resolvePrice(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "id")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	customerID, err := render.QueryID(r, "customer_id")
	if err != nil || customerID == nil {
		render.BadRequest(w, "customer_id query parameter is required")
		return
	}

	res, err := h.svc.ResolvePrice(r.Context(), id, *customerID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResolution(res))
}

func (h *Handler) importPrices(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		render.BadRequest(w, "failed to parse form: %v", err)
		return
	}

	source := importer.Source(r.FormValue("source"))
	if source == "" {
		source = importer.SourcePriceList
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	rows, err := h.importSvc.Import(source, file)
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	res, err := h.svc.ImportPrices(r.Context(), rows)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toImport(len(rows), res))
}
