// Package http serves the household JSON API.
//
// This file builds JSON responses and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"homesplit/internal/core"
	"homesplit/internal/log"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// errBadRequest marks malformed input found by the handlers themselves.
var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidMember,
	core.ErrEmptyDisplayName,
	core.ErrMissingPayer,
	core.ErrNoBeneficiaries,
	core.ErrDuplicateBeneficiary,
	core.ErrInvalidKind,
	core.ErrInvalidRepetition,
	core.ErrInvalidPeriod,
	core.ErrInvalidOverride,
	core.ErrUnknownMember,
}

// classify maps err to a status code and log error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, core.ErrPeriodClosed), errors.Is(err, core.ErrMemberExists):
		return http.StatusConflict, log.ErrorTypeConflict
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, log.ErrorTypeValidation
		}
	}
	return http.StatusInternalServerError, log.ErrorTypeInternal
}

// ErrorFor builds the response for err. Internal errors never leak their
// message.
func ErrorFor(err error) *JSONResponseBuilder {
	code, _ := classify(err)
	if code == http.StatusInternalServerError {
		return InternalServerError()
	}
	return ErrorResponse(code, err.Error())
}
