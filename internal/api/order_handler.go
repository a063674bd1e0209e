package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/entity"
	"storefront/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder --> POST /api/orders
//
// The credential is optional and may come from the Authorization header or
// the user_token body field; the header wins when both are present.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	body := struct {
		entity.OrderRequest
		UserToken *string `json:"user_token"`
	}{}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
	}

	token := body.UserToken
	if bearer := bearerToken(c); bearer != "" {
		token = &bearer
	}

	details, err := h.orderService.CreateOrder(c.Request().Context(), &body.OrderRequest, token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, details)
}

// GetOrder --> GET /api/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID"})
	}

	details, err := h.orderService.GetOrder(c.Request().Context(), id, claimsFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}
