package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/entity"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// DefaultItemTitle is stored for items whose product no longer resolves and
// whose request carried no title.
const DefaultItemTitle = "Produto"

// OrderPublisher announces persisted orders to downstream consumers.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, event string, details *entity.OrderDetails) error
}

// OrderService is a service that provides order-related operations
type OrderService struct {
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	userRepo    *repository.UserRepository
	tokens      *TokenIssuer
	publisher   OrderPublisher
}

// NewOrderService creates a new instance of OrderService. publisher may be nil.
func NewOrderService(orderRepo *repository.OrderRepository, productRepo *repository.ProductRepository, userRepo *repository.UserRepository, tokens *TokenIssuer, publisher OrderPublisher) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		tokens:      tokens,
		publisher:   publisher,
	}
}

// CreateOrder persists an order and snapshots each item's price and title
// from the catalog as it is right now. token is optional: when it verifies,
// the order is attached to its user, otherwise the order is anonymous.
// Submitting the same cart twice creates two orders.
func (s *OrderService) CreateOrder(ctx context.Context, req *entity.OrderRequest, token *string) (*entity.OrderDetails, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, newError(ErrBadRequest, "items are required")
	}
	if req.Customer == nil || strings.TrimSpace(req.Customer.Name) == "" || strings.TrimSpace(req.Customer.Email) == "" {
		return nil, newError(ErrBadRequest, "customer name and email are required")
	}
	if len(req.Items) > entity.MaxOrderItems {
		return nil, newError(ErrBadRequest, fmt.Sprintf("at most %d items per order", entity.MaxOrderItems))
	}

	order := &entity.Order{
		UserID:          s.resolveOwner(ctx, token),
		CustomerName:    strings.TrimSpace(req.Customer.Name),
		CustomerEmail:   strings.TrimSpace(req.Customer.Email),
		CustomerAddress: strings.TrimSpace(req.Customer.Address),
		Status:          entity.OrderStatusPending,
	}

	items := make([]entity.OrderItem, 0, len(req.Items))
	for _, requested := range req.Items {
		item, err := s.snapshotItem(ctx, requested)
		if err != nil {
			return nil, err
		}
		order.TotalCents += item.PriceCents * int64(item.Qty)
		items = append(items, item)
	}

	if req.TotalCents != 0 && req.TotalCents != order.TotalCents {
		logger.Warn().Msgf("Submitted total %d differs from snapshot total %d", req.TotalCents, order.TotalCents)
	}

	orderID, err := s.orderRepo.CreateOrder(ctx, order, items)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating order")
		return nil, err
	}

	owner := "anonymous"
	if order.UserID != nil {
		owner = "user"
	}
	metrics.OrdersCreated.WithLabelValues(owner).Inc()

	details, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting order by ID %d", orderID)
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrder(ctx, "created", details); err != nil {
			logger.Error().Err(err).Msgf("Error publishing order %d", orderID)
		}
	}

	return details, nil
}

// GetOrder returns an order with its items. Admins may read any order;
// other callers only orders attached to their own user id.
func (s *OrderService) GetOrder(ctx context.Context, id int64, claims *Claims) (*entity.OrderDetails, error) {
	if claims == nil {
		return nil, newError(ErrUnauthorized, "missing credential")
	}

	details, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "order not found")
		}
		logger.Error().Err(err).Msgf("Error getting order by ID %d", id)
		return nil, err
	}

	if claims.IsAdmin {
		return details, nil
	}
	if details.Order.UserID != nil && *details.Order.UserID == claims.UserID {
		return details, nil
	}
	return nil, newError(ErrForbidden, "access denied")
}

// resolveOwner returns the id of the user the token was issued to, or nil
// when the token does not verify or its user no longer exists.
func (s *OrderService) resolveOwner(ctx context.Context, token *string) *int64 {
	if token == nil || *token == "" {
		return nil
	}
	claims, err := s.tokens.Parse(*token)
	if err != nil {
		logger.Debug().Err(err).Msg("Ignoring unverifiable order credential")
		return nil
	}
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Debug().Int64("user_id", claims.UserID).Msg("Order credential names no known user")
		} else {
			logger.Error().Err(err).Msgf("Error getting user by ID %d", claims.UserID)
		}
		return nil
	}
	userID := user.ID
	return &userID
}

func (s *OrderService) snapshotItem(ctx context.Context, requested entity.OrderItemRequest) (entity.OrderItem, error) {
	item := entity.OrderItem{Qty: requested.Qty}
	if item.Qty <= 0 {
		item.Qty = 1
	}
	if item.Qty > entity.MaxItemQty {
		return item, newError(ErrBadRequest, fmt.Sprintf("qty must be at most %d", entity.MaxItemQty))
	}

	if requested.ProductID > 0 {
		product, err := s.productRepo.GetProductByID(ctx, requested.ProductID)
		switch {
		case err == nil:
			id := product.ID
			item.ProductID = &id
			item.PriceCents = product.PriceCents
			item.Title = product.Title
			return item, nil
		case !errors.Is(err, repository.ErrNotFound):
			logger.Error().Err(err).Msgf("Error getting product by ID %d", requested.ProductID)
			return item, err
		}
	}

	item.PriceCents = requested.PriceCents
	if item.PriceCents < 0 {
		item.PriceCents = 0
	}
	if item.PriceCents > entity.MaxPriceCents {
		return item, newError(ErrBadRequest, fmt.Sprintf("price_cents must be at most %d", entity.MaxPriceCents))
	}
	item.Title = strings.TrimSpace(requested.Title)
	if item.Title == "" {
		item.Title = DefaultItemTitle
	}
	return item, nil
}
