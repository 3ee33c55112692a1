// Package http exposes the ledger and the analytics engine as a JSON API.
//
// This file implements the builder for the response envelope:
//
//	{"success": true, "message": "...", "data": ..., "pagination": {...}}
//	{"success": false, "message": "...", "errors": [{"field": "...", "message": "..."}]}
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// FieldError is one entry of the errors array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Pagination mirrors ledger.Page metadata.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

type envelope struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message,omitempty"`
	Data       any          `json:"data,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	body       envelope
	headers    map[string]string
}

// NewJSONResponse creates a successful response builder with 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	b.body.Success = code < 400
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.body.Message = msg
	return b
}

func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.body.Data = data
	return b
}

func (b *JSONResponseBuilder) Paginate(p Pagination) *JSONResponseBuilder {
	b.body.Pagination = &p
	return b
}

func (b *JSONResponseBuilder) FieldErrors(errs ...FieldError) *JSONResponseBuilder {
	b.body.Errors = append(b.body.Errors, errs...)
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a failed response with a message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="fintrack"`)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FromError maps the error taxonomy onto a response. Store failures and
// anything unrecognised become a 500 without internal detail.
func FromError(err error) *JSONResponseBuilder {
	var (
		verr *core.ValidationError
		aerr *core.AuthorizationError
	)
	switch {
	case errors.As(err, &verr):
		return BadRequestError("Validation failed").FieldErrors(FieldError{Field: verr.Field, Message: verr.Message})
	case errors.As(err, &aerr):
		return UnauthorizedError(aerr.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Resource not found")
	case errors.Is(err, core.ErrConflict):
		return ConflictError("Budget already exists for this category, month, and year")
	default:
		return InternalServerError("Internal server error")
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := FromError(err)
	if resp.statusCode >= 500 {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, log.NewFields().WithErrorType(errorType(err)))
	}
	resp.Write(w)
}

func errorType(err error) string {
	if core.IsStore(err) {
		return log.ErrorTypeDatabase
	}
	return log.ErrorTypeInternal
}
