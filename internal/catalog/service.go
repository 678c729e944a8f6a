package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/cache"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Source is the upstream product catalog.
type Source interface {
	Product(ctx context.Context, id string) (backend.Product, error)
	ProductByBarcode(ctx context.Context, code string) (backend.Product, error)
	ActiveProducts(ctx context.Context) ([]backend.Product, error)
	SearchProducts(ctx context.Context, query, categoryID, brandID string) ([]backend.Product, error)
	Categories(ctx context.Context) ([]backend.Category, error)
	Brands(ctx context.Context) ([]backend.Brand, error)
}

// ErrInactive is returned for products that exist but are not on sale.
var ErrInactive = errors.New("product is not active")

// Service answers product lookups for the till, caching single products and
// the category and brand lists.
type Service struct {
	source Source
	cache  *cache.Redis
	log    zerolog.Logger
}

// NewService wires a Service. c may be nil.
func NewService(source Source, c *cache.Redis, log zerolog.Logger) *Service {
	return &Service{source: source, cache: c, log: log}
}

// Product returns a product by id.
func (s *Service) Product(ctx context.Context, id string) (backend.Product, error) {
	id = strings.TrimSpace(id)
	var p backend.Product
	if s.cache.GetJSON(ctx, cache.KindProduct, cache.KeyProduct(id), &p) {
		return p, nil
	}
	p, err := s.source.Product(ctx, id)
	if err != nil {
		return backend.Product{}, err
	}
	s.store(ctx, p)
	return p, nil
}

// ByBarcode returns the product whose barcode matches code exactly.
func (s *Service) ByBarcode(ctx context.Context, code string) (backend.Product, error) {
	code = strings.TrimSpace(code)
	var id string
	if s.cache.GetJSON(ctx, cache.KindBarcode, cache.KeyBarcode(code), &id) {
		if p, err := s.Product(ctx, id); err == nil && p.Barcode == code {
			return p, nil
		}
	}
	p, err := s.source.ProductByBarcode(ctx, code)
	if err != nil {
		return backend.Product{}, err
	}
	s.store(ctx, p)
	return p, nil
}

// ForSale resolves a product id into the pricing view a cart accepts.
func (s *Service) ForSale(ctx context.Context, id string) (pricing.Product, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return pricing.Product{}, err
	}
	if !p.IsActive {
		return pricing.Product{}, fmt.Errorf("product %s: %w", id, ErrInactive)
	}
	return p.Pricing(), nil
}

// Search lists products by text or by category and brand. Results reflect
// live stock and are not cached.
func (s *Service) Search(ctx context.Context, query, categoryID, brandID string) ([]backend.Product, error) {
	return s.source.SearchProducts(ctx, query, categoryID, brandID)
}

// Categories returns the category list.
func (s *Service) Categories(ctx context.Context) ([]backend.Category, error) {
	var out []backend.Category
	if s.cache.GetJSON(ctx, cache.KindLists, "categories", &out) {
		return out, nil
	}
	out, err := s.source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	s.set(ctx, "categories", out)
	return out, nil
}

// Brands returns the brand list.
func (s *Service) Brands(ctx context.Context) ([]backend.Brand, error) {
	var out []backend.Brand
	if s.cache.GetJSON(ctx, cache.KindLists, "brands", &out) {
		return out, nil
	}
	out, err := s.source.Brands(ctx)
	if err != nil {
		return nil, err
	}
	s.set(ctx, "brands", out)
	return out, nil
}

// Invalidate drops cached products so the next lookup sees fresh stock.
func (s *Service) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.KeyProduct(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("product_ids", ids).Msg("catalog_invalidate_failed")
	}
}

// WarmStats reports what Warm loaded.
type WarmStats struct {
	Categories int `json:"categories"`
	Brands     int `json:"brands"`
	Products   int `json:"products"`
}

// Warm loads categories, brands and active products in parallel and primes
// the cache with them. Any failure aborts the others.
func (s *Service) Warm(ctx context.Context) (WarmStats, error) {
	var (
		stats    WarmStats
		products []backend.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.source.Categories(gctx)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		stats.Categories = len(cats)
		s.set(gctx, "categories", cats)
		return nil
	})
	g.Go(func() error {
		brands, err := s.source.Brands(gctx)
		if err != nil {
			return fmt.Errorf("brands: %w", err)
		}
		stats.Brands = len(brands)
		s.set(gctx, "brands", brands)
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.source.ActiveProducts(gctx)
		if err != nil {
			return fmt.Errorf("active products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return WarmStats{}, err
	}
	for _, p := range products {
		s.store(ctx, p)
	}
	stats.Products = len(products)
	s.log.Info().
		Int("categories", stats.Categories).
		Int("brands", stats.Brands).
		Int("products", stats.Products).
		Msg("catalog_warmed")
	return stats, nil
}

func (s *Service) store(ctx context.Context, p backend.Product) {
	id := p.ProductID.String()
	if id == "" {
		return
	}
	s.set(ctx, cache.KeyProduct(id), p)
	if code := strings.TrimSpace(p.Barcode); code != "" {
		s.set(ctx, cache.KeyBarcode(code), id)
	}
}

func (s *Service) set(ctx context.Context, key string, v any) {
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
}
