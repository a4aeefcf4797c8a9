// Package render holds the JSON plumbing shared by the HTTP handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

const (
	CodeNotFound   billing.Code = "not_found"
	CodeBadRequest billing.Code = "bad_request"
	CodeInternal   billing.Code = "internal"
)

type errorResponse struct {
	Code    billing.Code `json:"code"`
	Message string       `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, format string, args ...any) {
	JSON(w, http.StatusBadRequest, errorResponse{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)})
}

// Error maps a service error to its status code: validation failures are 422,
// missing entities 404, and everything else 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := billing.AsValidation(err); ok {
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Code: v.Code, Message: v.Message})
		return
	}

	if errors.Is(err, billing.ErrNotFound) {
		JSON(w, http.StatusNotFound, errorResponse{Code: CodeNotFound, Message: "resource not found"})
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	JSON(w, http.StatusInternalServerError, errorResponse{Code: CodeInternal, Message: "internal error"})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

// ID parses a uuid path parameter.
func ID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}

	return id, nil
}

// QueryID parses an optional uuid query parameter.
func QueryID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}

	return &id, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := billing.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected YYYY-MM-DD", name)
	}

	return &t, nil
}

// Date is a calendar day encoded as "YYYY-MM-DD".
type Date time.Time

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(billing.FormatDay(time.Time(d)))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}

	t, err := billing.ParseDay(s)
	if err != nil {
		return fmt.Errorf("date %q: expected YYYY-MM-DD", s)
	}

	*d = Date(t)

	return nil
}

// Time returns the day, or the zero time when unset.
func (d *Date) Time() time.Time {
	if d == nil {
		return time.Time{}
	}

	return time.Time(*d)
}

// Ptr returns the day as a *time.Time, nil when d is nil.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}

	return new(time.Time(*d))
}

// DatePtr converts an optional day for a response.
func DatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}

	return new(Date(*t))
}
