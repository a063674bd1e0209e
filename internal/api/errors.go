package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront/internal/feed"
	"storefront/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// respondError writes err as {"error": msg} with the status of its kind.
// Errors without a kind are logged and reported as a generic 500.
func respondError(c echo.Context, err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return c.JSON(statusOf(svcErr.Kind), map[string]string{"error": svcErr.Msg})
	}

	var loadErr *feed.LoadError
	if errors.As(err, &loadErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to load products", "hint": loadErr.Hint})
	}

	logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func statusOf(kind error) int {
	switch {
	case errors.Is(kind, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
