package statement

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type Handler struct {
	svc *statement.Service
}

func NewHandler(svc *statement.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/{customerID}", h.get)
	r.Get("/{customerID}/export", h.export)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	statements, err := h.svc.All(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toOverviews(statements))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSummary(sum))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "customerID")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	st, err := h.svc.Statement(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toStatement(st))
}

// export streams the statement as CSV, or as a plain-text email body with
// ?format=text.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, err := render.ID(r, "customerID")
	if err != nil {
		render.BadRequest(w, "%v", err)
		return
	}

	st, err := h.svc.Statement(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if _, err := w.Write([]byte(export.GenerateEmailBody(st))); err != nil {
			slog.Error("failed to write email body", "error", err)
		}

		return
	}

	// Buffer so a write failure can still produce an error status.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, st); err != nil {
		render.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(st, time.Now())))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write statement export", "customer_id", id, "error", err)
	}
}
