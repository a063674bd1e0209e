package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"storefront/internal/service"
)

const claimsContextKey = "user"

// requireAuth verifies the "Authorization: Bearer <token>" header and stores
// the claims in the context under claimsContextKey.
func requireAuth(tokens *service.TokenIssuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return tokens.Parse(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			msg := "invalid token"
			var svcErr *service.Error
			switch {
			case errors.As(err, &svcErr):
				msg = svcErr.Msg
			case errors.Is(err, echojwt.ErrJWTMissing):
				msg = "missing or malformed token"
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
		},
	})
}

// requireAdmin must run after requireAuth.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := claimsFrom(c)
		if claims == nil || !claims.IsAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin privileges required"})
		}
		return next(c)
	}
}

func claimsFrom(c echo.Context) *service.Claims {
	claims, _ := c.Get(claimsContextKey).(*service.Claims)
	return claims
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is absent or has another shape.
func bearerToken(c echo.Context) string {
	parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// rateLimiter allows perSecond requests per client IP with a burst of three.
func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(perSecond),
				Burst:     3,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}
	return middleware.RateLimiterWithConfig(config)
}
