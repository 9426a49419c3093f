package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/repositories"
)

const productIDPrefix = "prd_"

var (
	// ErrProductInvalidInput signals the caller provided invalid arguments.
	ErrProductInvalidInput = errors.New("product: invalid input")
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.New("product: not found")
	// ErrInsufficientStock indicates a reservation exceeds availability.
	ErrInsufficientStock = errors.New("product: insufficient stock")
)

// InsufficientStockError reports the shortage observed when a reservation
// failed so callers can surface the available quantity.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product: insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is reports ErrInsufficientStock so callers can match without unpacking fields.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Products          repositories.ProductRepository
	Clock             func() time.Time
	IDGenerator       func() string
	Currency          string
	LowStockThreshold int64
}

type inventoryService struct {
	products         repositories.ProductRepository
	clock            func() time.Time
	newID            func() string
	currency         string
	defaultThreshold int64
}

var _ InventoryService = (*inventoryService)(nil)

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Products == nil {
		return nil, errors.New("inventory service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "usd"
	}

	threshold := deps.LowStockThreshold
	if threshold < 0 {
		threshold = 0
	}

	return &inventoryService{
		products: deps.Products,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:            idGen,
		currency:         currency,
		defaultThreshold: threshold,
	}, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *inventoryService) UpsertProduct(ctx context.Context, cmd ProductUpsertCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrProductInvalidInput)
	}
	if cmd.UnitPrice < 0 {
		return Product{}, fmt.Errorf("%w: unit price must not be negative", ErrProductInvalidInput)
	}
	if cmd.InitialQuantity != nil && *cmd.InitialQuantity < 0 {
		return Product{}, fmt.Errorf("%w: initial quantity must not be negative", ErrProductInvalidInput)
	}
	if cmd.LowStockThreshold != nil && *cmd.LowStockThreshold < 0 {
		return Product{}, fmt.Errorf("%w: low stock threshold must not be negative", ErrProductInvalidInput)
	}

	now := s.clock()

	currency := strings.ToLower(strings.TrimSpace(cmd.Currency))
	if currency == "" {
		currency = s.currency
	}

	product := Product{
		ID:                      strings.TrimSpace(cmd.ProductID),
		SKU:                     strings.TrimSpace(cmd.SKU),
		Name:                    name,
		Category:                strings.TrimSpace(cmd.Category),
		UnitPrice:               cmd.UnitPrice,
		Currency:                currency,
		TrackQuantity:           cmd.TrackQuantity,
		AllowOutOfStockPurchase: cmd.AllowOutOfStockPurchase,
		LowStockThreshold:       s.defaultThreshold,
		Active:                  cmd.Active,
		UpdatedAt:               now,
	}
	if cmd.LowStockThreshold != nil {
		product.LowStockThreshold = *cmd.LowStockThreshold
	}

	if product.ID == "" {
		product.ID = productIDPrefix + s.newID()
		product.CreatedAt = now
		if cmd.InitialQuantity != nil {
			product.Quantity = *cmd.InitialQuantity
		}
	}

	updated, err := s.products.Upsert(ctx, product)
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return updated, nil
}

func (s *inventoryService) ConfigureStock(ctx context.Context, cmd StockAdjustmentCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if (cmd.SetQuantity == nil) == (cmd.AdjustBy == nil) {
		return Product{}, fmt.Errorf("%w: exactly one of setQuantity or adjustBy is required", ErrProductInvalidInput)
	}
	if cmd.SetQuantity != nil && *cmd.SetQuantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity must not be negative", ErrProductInvalidInput)
	}

	updated, err := s.products.ConfigureStock(ctx, repositories.StockConfigRequest{
		ProductID:   productID,
		SetQuantity: cmd.SetQuantity,
		AdjustBy:    cmd.AdjustBy,
		Now:         s.clock(),
	})
	if err != nil {
		return Product{}, s.mapRepositoryError(err)
	}
	return updated, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error) {
	if query.PageSize < 0 {
		return domain.CursorPage[Product]{}, fmt.Errorf("%w: page size must not be negative", ErrProductInvalidInput)
	}

	page, err := s.products.List(ctx, repositories.ProductListFilter{
		Category:   strings.TrimSpace(query.Category),
		ActiveOnly: query.ActiveOnly,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error) {
	if query.PageSize < 0 {
		return domain.CursorPage[Product]{}, fmt.Errorf("%w: page size must not be negative", ErrProductInvalidInput)
	}

	page, err := s.products.ListLowStock(ctx, repositories.ProductListFilter{
		Category:   strings.TrimSpace(query.Category),
		ActiveOnly: query.ActiveOnly,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorProductNotFound:
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repositories.InventoryErrorInsufficientStock:
			return &InsufficientStockError{
				ProductID: invErr.ProductID,
				Available: invErr.Available,
				Requested: invErr.Requested,
			}
		case repositories.InventoryErrorInvalidQuantity:
			return fmt.Errorf("%w: %v", ErrProductInvalidInput, err)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("product: conflicting update: %w", err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("product: repository unavailable: %w", err)
		}
	}

	return err
}
