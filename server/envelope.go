package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/bulk"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/openapi"
	"github.com/gaborage/routekit/response"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/validation"
)

// APIResponse represents the standardized API response format.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// CodeXMLNotSupported is the error code for payloads requested as XML.
const CodeXMLNotSupported = "XML_NOT_SUPPORTED"

// ToAPIError maps errors from the routing layer onto API errors. The second
// result reports whether err is a programmer error that must be logged. XML
// payload requests answer 406 and are logged as well.
func ToAPIError(err error) (IAPIError, bool) {
	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		return apiErr, apiErr.HTTPStatus() >= http.StatusInternalServerError
	}

	var (
		paramErr *validation.ParamError
		cfgErr   *validation.ConfigurationError
		routeErr *route.ConfigError
		envErr   *bulk.EnvelopeError
		httpErr  *echo.HTTPError
	)
	switch {
	case errors.As(err, &paramErr):
		return NewBadRequestError(paramErr.Error()).
			WithDetails("parameter", paramErr.Name).
			WithDetails("location", string(paramErr.In)), false
	case errors.Is(err, validation.ErrNoMatchingContentType):
		return NewUnsupportedMediaTypeError(err.Error()), false
	case errors.Is(err, response.ErrXMLNotSupported):
		return NewNotAcceptableError(CodeXMLNotSupported, "XML responses are not supported"), true
	case errors.Is(err, auth.ErrForbidden):
		return NewForbiddenError(""), false
	case errors.Is(err, auth.ErrUnauthenticated):
		return NewUnauthorizedError(""), false
	case errors.As(err, &envErr):
		return envelopeError(envErr), false
	case errors.As(err, &cfgErr), errors.As(err, &routeErr),
		errors.Is(err, response.ErrUnknownResultKind), errors.Is(err, openapi.ErrUnknownComponent):
		return NewInternalServerError("").WithDetails("error", err.Error()), true
	case errors.Is(err, context.DeadlineExceeded):
		return NewServiceUnavailableError("Request timed out"), false
	case errors.As(err, &httpErr):
		return fromHTTPError(httpErr), httpErr.Code >= http.StatusInternalServerError
	}
	return NewInternalServerError("").WithDetails("error", err.Error()), true
}

func envelopeError(e *bulk.EnvelopeError) IAPIError {
	switch e.Status {
	case http.StatusMethodNotAllowed:
		return NewMethodNotAllowedError(e.Message)
	case http.StatusUnsupportedMediaType:
		return NewUnsupportedMediaTypeError(e.Message)
	case http.StatusRequestEntityTooLarge:
		return NewPayloadTooLargeError(e.Message)
	}
	return NewBadRequestError(e.Message)
}

func fromHTTPError(he *echo.HTTPError) IAPIError {
	msg := http.StatusText(he.Code)
	switch m := he.Message.(type) {
	case string:
		msg = m
	case error:
		msg = m.Error()
	}
	return NewBaseAPIError(statusToErrorCode(he.Code), msg, he.Code)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusNotAcceptable:
		return "NOT_ACCEPTABLE"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// errorHandler renders every error reaching echo as an APIResponse envelope.
func errorHandler(cfg *config.Config, log logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		apiErr, internal := ToAPIError(err)
		if internal {
			log.WithContext(c.Request().Context()).Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("Request failed")
		}
		if err := formatErrorResponse(c, apiErr, cfg); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
	}
}

// formatErrorResponse formats an error response with standardized structure.
// Details and internal messages are only exposed outside production.
func formatErrorResponse(c echo.Context, apiErr IAPIError, cfg *config.Config) error {
	errorResp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}
	if showDetails(cfg) {
		if details := apiErr.Details(); len(details) > 0 {
			errorResp.Details = details
		}
	} else if apiErr.HTTPStatus() >= http.StatusInternalServerError {
		errorResp.Message = "An error occurred while processing your request"
	}

	return c.JSON(apiErr.HTTPStatus(), APIResponse{
		Error: errorResp,
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"traceId":   getTraceID(c),
		},
	})
}

func showDetails(cfg *config.Config) bool {
	return cfg == nil || cfg.App.Env != config.EnvProduction
}

// getTraceID extracts or generates a trace ID for the request.
func getTraceID(c echo.Context) string {
	if requestID := c.Request().Header.Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	newID := uuid.NewString()
	c.Response().Header().Set(echo.HeaderXRequestID, newID)
	return newID
}
