// Package httpx writes the JSON bodies of the shipping API: success payloads and the error
// envelope every rejection goes through.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/requestctx"
	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

const (
	codeLimit    = 80
	messageLimit = 512
	traceLimit   = 64
)

// Error is a rejection on its way to the client. Violations and Weight are rendered inline
// next to the code and message.
type Error struct {
	Code       string
	Message    string
	Status     int
	Violations []Violation
	Weight     *WeightLimit
	RetryAfter time.Duration
}

// Violation names one request field that failed validation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WeightLimit describes a cart rejected for its chargeable mass.
type WeightLimit struct {
	ChargeableGrams int64 `json:"chargeableGrams"`
	MaxGrams        int64 `json:"maxGrams"`
	ChargedByVolume bool  `json:"chargedByVolume"`
}

type envelope struct {
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Status     int         `json:"status"`
	RequestID  string      `json:"request_id,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
	*WeightLimit
}

// NewError builds an envelope. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    oneLine(code, codeLimit),
		Message: oneLine(message, messageLimit),
		Status:  status,
	}
}

// InvalidRequest is a 400 carrying the offending fields.
func InvalidRequest(message string, violations ...Violation) Error {
	e := NewError("invalid_request", message, http.StatusBadRequest)
	e.Violations = violations
	return e
}

// RateLimited is a 429 asking the client to come back after wait.
func RateLimited(message string, wait time.Duration) Error {
	e := NewError("rate_limited", message, http.StatusTooManyRequests)
	e.RetryAfter = wait
	return e
}

// ShippingError maps an error returned by the shipping service onto its envelope. Anything
// unrecognised becomes a 500 without leaking the cause.
func ShippingError(err error) Error {
	var overweight *shipping.WeightExceededError
	switch {
	case errors.As(err, &overweight):
		e := NewError("weight_exceeded", "cart exceeds the maximum shippable weight", http.StatusUnprocessableEntity)
		e.Weight = &WeightLimit{
			ChargeableGrams: overweight.ChargeableGrams,
			MaxGrams:        overweight.MaxGrams,
			ChargedByVolume: overweight.ChargedByVolume,
		}
		return e
	case errors.Is(err, shipping.ErrInvalidPostalCode):
		return NewError("invalid_postal_code", "destination postal code is invalid", http.StatusBadRequest)
	case errors.Is(err, shipping.ErrEmptyCart):
		return NewError("empty_cart", "cart has no items", http.StatusBadRequest)
	case errors.Is(err, shipping.ErrUnknownTariff):
		return InvalidRequest("unknown pricing policy")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewError("request_timeout", "request timed out", http.StatusGatewayTimeout)
	default:
		return NewError("internal_server_error", "unable to compute shipping", http.StatusInternalServerError)
	}
}

// WriteError renders err, stamping the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if err.RetryAfter > 0 {
		seconds := int64((err.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	}

	WriteJSON(w, status, envelope{
		Error:       err.Code,
		Message:     err.Message,
		Status:      status,
		RequestID:   oneLine(middleware.GetReqID(ctx), codeLimit),
		TraceID:     oneLine(requestctx.TraceID(ctx), traceLimit),
		Violations:  err.Violations,
		WeightLimit: err.Weight,
	})
}

// WriteJSON encodes payload with the given status. Encoding failures after the header is
// written cannot be reported to the client and are dropped.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// oneLine collapses whitespace runs, line breaks included, and keeps at most limit runes.
func oneLine(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) > limit {
		value = string(runes[:limit])
	}
	return value
}
