package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNoValidFiles),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBackendUnreachable),
		errors.Is(err, domain.ErrStillProcessing):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes every error as {"error": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": msg})
	}
	if err != nil {
		logger.Warn("write error response: %v", err)
	}
}
