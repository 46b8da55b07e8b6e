package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/bulk"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/response"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/validation"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		internal bool
	}{
		{"api_error", NewConflictError("taken"), http.StatusConflict, "CONFLICT", false},
		{"wrapped_api_error", fmt.Errorf("load: %w", NewNotFoundError("Course")), http.StatusNotFound, "NOT_FOUND", false},
		{"param", &validation.ParamError{Name: "id", In: route.InPath, Message: "bad"}, http.StatusBadRequest, "BAD_REQUEST", false},
		{"content_type", fmt.Errorf("%w: text/plain", validation.ErrNoMatchingContentType), http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", false},
		{"xml", response.ErrXMLNotSupported, http.StatusNotAcceptable, CodeXMLNotSupported, true},
		{"forbidden", fmt.Errorf("%w: course:edit", auth.ErrForbidden), http.StatusForbidden, "FORBIDDEN", false},
		{"unauthenticated", auth.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", false},
		{"envelope_size", &bulk.EnvelopeError{Status: http.StatusRequestEntityTooLarge, Message: "too big"}, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", false},
		{"envelope_boundary", &bulk.EnvelopeError{Status: http.StatusBadRequest, Message: "no boundary"}, http.StatusBadRequest, "BAD_REQUEST", false},
		{"configuration", &validation.ConfigurationError{Route: "/x", Message: "missing"}, http.StatusInternalServerError, "INTERNAL_ERROR", true},
		{"unknown_result", response.ErrUnknownResultKind, http.StatusInternalServerError, "INTERNAL_ERROR", true},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", false},
		{"echo_404", echo.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
		{"echo_413", echo.NewHTTPError(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", false},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr, internal := ToAPIError(tt.err)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.Equal(t, tt.code, apiErr.ErrorCode())
			assert.Equal(t, tt.internal, internal)
		})
	}
}

func TestParamErrorDetails(t *testing.T) {
	apiErr, _ := ToAPIError(&validation.ParamError{Name: "lang", In: route.InQuery, Message: "bad"})
	assert.Equal(t, map[string]any{"parameter": "lang", "location": "query"}, apiErr.Details())
}

func TestErrorHandlerHidesInternalsInProduction(t *testing.T) {
	cases := []struct {
		env     string
		message string
		details bool
	}{
		{"development", "An internal error occurred", true},
		{"production", "An error occurred while processing your request", false},
	}

	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			cfg := testConfig(t, "app:\n  env: "+tc.env+"\n")
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), rec)

			errorHandler(cfg, logger.Nop())(errors.New("db down"), c)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode(t, rec)
			e2 := body["error"].(map[string]any)
			assert.Equal(t, tc.message, e2["message"])
			_, hasDetails := e2["details"]
			assert.Equal(t, tc.details, hasDetails)

			meta := body["meta"].(map[string]any)
			assert.NotEmpty(t, meta["timestamp"])
			assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), meta["traceId"])
		})
	}
}

func TestErrorHandlerSkipsCommittedResponses(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), rec)
	require.NoError(t, c.String(http.StatusAccepted, "partial"))

	errorHandler(nil, logger.Nop())(errors.New("late"), c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestTraceIDPrefersRequestHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "req-42", getTraceID(c))
}
