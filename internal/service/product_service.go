package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

// ProductCache is a read-through cache for single products. Get returns
// (nil, nil) on a miss.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*entity.Product, error)
	Set(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id int64) error
}

type ProductService struct {
	productRepo *repository.ProductRepository
	cache       ProductCache
}

// NewProductService creates a new instance of ProductService. cache may be nil.
func NewProductService(productRepo *repository.ProductRepository, cache ProductCache) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		cache:       cache,
	}
}

// ListProducts returns the whole catalog, newest first.
func (p *ProductService) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	products, err := p.productRepo.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return nil, err
	}
	return products, nil
}

// GetProduct reads from cache first and falls back to the store.
func (p *ProductService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, id)
		if err != nil {
			logger.Warn().Err(err).Msgf("Error getting product %d from cache", id)
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := p.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "product not found")
		}
		logger.Error().Err(err).Msgf("Error getting product by ID %d", id)
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, product); err != nil {
			logger.Warn().Err(err).Msgf("Error setting product %d in cache", id)
		}
	}
	return product, nil
}

// Search returns products whose title, description or category contain q,
// ignoring case. A blank query yields an empty result.
func (p *ProductService) Search(ctx context.Context, q string) ([]*entity.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*entity.Product{}, nil
	}

	products, err := p.productRepo.SearchProducts(ctx, q)
	if err != nil {
		logger.Error().Err(err).Msgf("Error searching products for %q", q)
		return nil, err
	}
	return products, nil
}

func (p *ProductService) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" || product.PriceCents <= 0 {
		return nil, newError(ErrBadRequest, "title and price_cents are required")
	}
	if product.PriceCents > entity.MaxPriceCents {
		return nil, newError(ErrBadRequest, fmt.Sprintf("price_cents must be at most %d", entity.MaxPriceCents))
	}
	if product.Stock < 0 {
		return nil, newError(ErrBadRequest, "stock must not be negative")
	}
	// Identity and creation time are assigned by the store.
	product.ID = 0
	product.CreatedAt = time.Time{}

	created, err := p.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}
	return created, nil
}

// UpdateProduct applies a partial update. Fields left nil keep their value.
func (p *ProductService) UpdateProduct(ctx context.Context, id int64, patch *entity.ProductPatch) (*entity.Product, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, newError(ErrBadRequest, "title must not be empty")
	}
	if patch.PriceCents != nil && *patch.PriceCents <= 0 {
		return nil, newError(ErrBadRequest, "price_cents must be positive")
	}
	if patch.PriceCents != nil && *patch.PriceCents > entity.MaxPriceCents {
		return nil, newError(ErrBadRequest, fmt.Sprintf("price_cents must be at most %d", entity.MaxPriceCents))
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, newError(ErrBadRequest, "stock must not be negative")
	}

	updated, err := p.productRepo.UpdateProduct(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "product not found")
		}
		logger.Error().Err(err).Msgf("Error updating product %d", id)
		return nil, err
	}

	p.evict(ctx, id)
	return updated, nil
}

func (p *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	err := p.productRepo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "product not found")
		}
		logger.Error().Err(err).Msgf("Error deleting product %d", id)
		return err
	}

	p.evict(ctx, id)
	return nil
}

// SeedProducts inserts the sample catalog when the products table is empty.
func (p *ProductService) SeedProducts(ctx context.Context) error {
	n, err := p.productRepo.CountProducts(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for i := range sampleProducts {
		product := sampleProducts[i]
		if _, err := p.productRepo.CreateProduct(ctx, &product); err != nil {
			return err
		}
	}
	logger.Info().Int("count", len(sampleProducts)).Msg("Seeded sample products")
	return nil
}

// PreWarmCache loads every product into the cache and returns how many were
// written. It is a no-op without a cache.
func (p *ProductService) PreWarmCache(ctx context.Context) (int, error) {
	if p.cache == nil {
		return 0, nil
	}

	products, err := p.productRepo.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return 0, err
	}

	warmed := 0
	for _, product := range products {
		if err := p.cache.Set(ctx, product); err != nil {
			logger.Error().Err(err).Msgf("Error setting product %d in cache", product.ID)
			continue
		}
		warmed++
	}
	return warmed, nil
}

func (p *ProductService) evict(ctx context.Context, id int64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %d from cache", id)
	}
}

var sampleProducts = []entity.Product{
	{Title: "Camiseta Retro", Handle: "camiseta-retro", Description: "Estampa exclusiva inspirada nos anos 90", Category: "Camisetas", PriceCents: 6999, SKU: "CR-001", Stock: 24, ImageURL: "/assets/images/camiseta-retro.jpg"},
	{Title: "Moletom Oversize", Handle: "moletom-oversize", Description: "Forro aconchegante e corte oversized", Category: "Moletom", PriceCents: 12990, SKU: "MO-001", Stock: 18, ImageURL: "/assets/images/moletom-oversize.jpg"},
	{Title: "Camiseta Eco", Handle: "camiseta-eco", Description: "Algodão orgânico", Category: "Camisetas", PriceCents: 5999, SKU: "CE-001", Stock: 30, ImageURL: "/assets/images/camiseta-eco.jpg"},
	{Title: "Boné Classic", Handle: "bone-classic", Description: "Boné clássico com ajuste traseiro", Category: "Acessórios", PriceCents: 3999, SKU: "BC-001", Stock: 50, ImageURL: "/assets/images/bone-classic.jpg"},
}
