package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"storefront/internal/cart"
	"storefront/internal/entity"
	"storefront/internal/service"
)

const (
	msgInvalidCart        = "Carrinho inválido."
	msgCartFull           = "Carrinho cheio."
	msgCartEmpty          = "Carrinho vazio."
	msgCheckoutInvalid    = "Confira seus dados e tente novamente."
	msgCheckoutFailed     = "Não foi possível finalizar o pedido."
	msgCheckoutDisabled   = "Pedidos indisponíveis no momento."
	msgProductUnavailable = "Produto indisponível."
)

// cartView is what cart.html renders. State is the encoded cart the page
// posts back with the next cart action.
type cartView struct {
	Items        []cart.Item
	Totals       cart.Totals
	State        string
	Notice       *cart.Notice
	NoticeMs     int64
	Message      string
	Detail       string
	Confirmation *confirmation
}

type confirmation struct {
	OrderID    int64
	TotalCents int64
}

type addForm struct {
	State      string `form:"cart"`
	ID         string `form:"id"`
	Name       string `form:"name"`
	PriceCents int64  `form:"price_cents"`
	Image      string `form:"image"`
}

type checkoutForm struct {
	State   string `form:"cart"`
	Name    string `form:"customer_name"`
	Email   string `form:"customer_email"`
	Address string `form:"customer_address"`
	Token   string `form:"user_token"`
}

func newCartView(c *cart.Cart) (cartView, error) {
	state, err := c.Encode()
	if err != nil {
		return cartView{}, err
	}
	return cartView{
		Items:    c.Entries(),
		Totals:   c.Totals(),
		State:    state,
		NoticeMs: cart.NoticeDuration.Milliseconds(),
	}, nil
}

func (h *Handler) renderCart(c echo.Context, code int, shopperCart *cart.Cart, edit func(*cartView)) error {
	view, err := newCartView(shopperCart)
	if err != nil {
		return err
	}
	if edit != nil {
		edit(&view)
	}
	return c.Render(code, "cart.html", view)
}

// AddToCart adds a product card to the posted cart --> /fragments/cart/add
func (h *Handler) AddToCart(c echo.Context) error {
	var form addForm
	if err := c.Bind(&form); err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	shopperCart, err := cart.Decode(form.State)
	if err != nil {
		return c.String(http.StatusBadRequest, msgInvalidCart)
	}

	item := cart.Item{
		ID:         strings.TrimSpace(form.ID),
		Name:       strings.TrimSpace(form.Name),
		PriceCents: form.PriceCents,
		Image:      form.Image,
	}
	if item.ID == "" {
		return c.String(http.StatusBadRequest, "missing product id")
	}

	// Catalog products are priced from the store, not from the card.
	if productID, err := strconv.ParseInt(item.ID, 10, 64); err == nil {
		product, err := h.products.GetProduct(c.Request().Context(), productID)
		switch {
		case err == nil:
			item.Name = product.Title
			item.PriceCents = product.PriceCents
			item.Image = imageOrPlaceholder(product.ImageURL)
		case errors.Is(err, service.ErrNotFound):
			return h.renderCart(c, http.StatusNotFound, shopperCart, func(v *cartView) { v.Message = msgProductUnavailable })
		default:
			return c.String(http.StatusInternalServerError, msgLoadFailed)
		}
	}
	if item.PriceCents < 0 || item.PriceCents > entity.MaxPriceCents {
		return c.String(http.StatusBadRequest, "invalid price")
	}

	notice := shopperCart.Add(item)
	if shopperCart.Len() > cart.MaxLines {
		_ = shopperCart.Remove(shopperCart.Len() - 1)
		return h.renderCart(c, http.StatusBadRequest, shopperCart, func(v *cartView) { v.Message = msgCartFull })
	}

	logger.Debug().Str("id", item.ID).Int("qty", notice.Qty).Msg("Added item to cart")
	return h.renderCart(c, http.StatusOK, shopperCart, func(v *cartView) { v.Notice = &notice })
}

// IncrementCartLine --> /fragments/cart/inc
func (h *Handler) IncrementCartLine(c echo.Context) error {
	return h.editLine(c, (*cart.Cart).Increment)
}

// DecrementCartLine --> /fragments/cart/dec
func (h *Handler) DecrementCartLine(c echo.Context) error {
	return h.editLine(c, (*cart.Cart).Decrement)
}

// RemoveCartLine --> /fragments/cart/remove
func (h *Handler) RemoveCartLine(c echo.Context) error {
	return h.editLine(c, (*cart.Cart).Remove)
}

// ClearCart --> /fragments/cart/clear
func (h *Handler) ClearCart(c echo.Context) error {
	if _, err := cart.Decode(c.FormValue("cart")); err != nil {
		return c.String(http.StatusBadRequest, msgInvalidCart)
	}
	return h.renderCart(c, http.StatusOK, cart.New(), nil)
}

func (h *Handler) editLine(c echo.Context, edit func(*cart.Cart, int) error) error {
	shopperCart, err := cart.Decode(c.FormValue("cart"))
	if err != nil {
		return c.String(http.StatusBadRequest, msgInvalidCart)
	}
	index, err := strconv.Atoi(c.FormValue("index"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid index")
	}
	if err := edit(shopperCart, index); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	return h.renderCart(c, http.StatusOK, shopperCart, nil)
}

// Checkout turns the posted cart into an order --> /fragments/cart/checkout
func (h *Handler) Checkout(c echo.Context) error {
	var form checkoutForm
	if err := c.Bind(&form); err != nil {
		return c.String(http.StatusBadRequest, "invalid form")
	}
	shopperCart, err := cart.Decode(form.State)
	if err != nil {
		return c.String(http.StatusBadRequest, msgInvalidCart)
	}
	if h.orders == nil {
		return h.renderCart(c, http.StatusServiceUnavailable, shopperCart, func(v *cartView) { v.Message = msgCheckoutDisabled })
	}

	req, err := shopperCart.OrderRequest(entity.Customer{
		Name:    strings.TrimSpace(form.Name),
		Email:   strings.TrimSpace(form.Email),
		Address: strings.TrimSpace(form.Address),
	})
	if errors.Is(err, cart.ErrEmpty) {
		return h.renderCart(c, http.StatusBadRequest, shopperCart, func(v *cartView) { v.Message = msgCartEmpty })
	}
	if err != nil {
		return err
	}

	token := strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
	if token == "" {
		token = strings.TrimSpace(form.Token)
	}
	var credential *string
	if token != "" {
		credential = &token
	}

	details, err := h.orders.CreateOrder(c.Request().Context(), req, credential)
	if err != nil {
		var svcErr *service.Error
		if errors.As(err, &svcErr) && errors.Is(err, service.ErrBadRequest) {
			return h.renderCart(c, http.StatusBadRequest, shopperCart, func(v *cartView) {
				v.Message = msgCheckoutInvalid
				v.Detail = svcErr.Msg
			})
		}
		logger.Error().Err(err).Msg("Error creating order from cart")
		return h.renderCart(c, http.StatusInternalServerError, shopperCart, func(v *cartView) { v.Message = msgCheckoutFailed })
	}

	logger.Info().Int64("order_id", details.Order.ID).Msg("Checked out cart")
	return h.renderCart(c, http.StatusOK, cart.New(), func(v *cartView) {
		v.Confirmation = &confirmation{OrderID: details.Order.ID, TotalCents: details.Order.TotalCents}
	})
}
