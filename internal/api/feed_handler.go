package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"storefront/internal/feed"
)

type FeedHandler struct {
	feed *feed.Service
}

func NewFeedHandler(feedService *feed.Service) *FeedHandler {
	return &FeedHandler{feed: feedService}
}

// List --> GET /api/feed?field=&value=&limit=
func (h *FeedHandler) List(c echo.Context) error {
	field, err := feed.ParseField(c.QueryParam("field"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
	}

	entries, err := h.feed.List(c.Request().Context(), field, strings.TrimSpace(c.QueryParam("value")), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Hero --> GET /api/feed/hero?limit=
func (h *FeedHandler) Hero(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
	}

	entries, err := h.feed.ListHero(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
