package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/storeops/api/internal/domain"
	pfirestore "github.com/storeops/api/internal/platform/firestore"
	"github.com/storeops/api/internal/platform/pagination"
	"github.com/storeops/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository implements repositories.ProductRepository backed by Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

// Upsert writes catalog fields. For existing products the stock counters and
// creation timestamp are preserved; Quantity and TotalSold only move through
// order transactions and ConfigureStock.
func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("product upsert: product id is required")
	}

	var saved domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}

		doc := newProductDocument(product)
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing productDocument
			if err := snap.DataTo(&existing); err != nil {
				return fmt.Errorf("decode product %s: %w", productID, err)
			}
			doc.Quantity = existing.Quantity
			doc.TotalSold = existing.TotalSold
			doc.CreatedAt = existing.CreatedAt
		case status.Code(err) == codes.NotFound:
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = doc.UpdatedAt
			}
		default:
			return err
		}

		doc.recalculate()
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		saved = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, wrapProductError("products.upsert", err)
	}
	return saved, nil
}

// FindByID returns the product by id.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product find: product id is required")
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ConfigureStock sets or adjusts the available quantity outside the order
// path, e.g. after receiving goods or a manual stock count.
func (r *ProductRepository) ConfigureStock(ctx context.Context, req repositories.StockConfigRequest) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return domain.Product{}, repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, "product configure stock: product id is required", nil)
	}

	now := req.Now.UTC()
	var updated domain.Product

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
			}
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		switch {
		case req.SetQuantity != nil:
			if *req.SetQuantity < 0 {
				return repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "product configure stock: quantity must not be negative", nil)
			}
			doc.Quantity = *req.SetQuantity
		case req.AdjustBy != nil:
			next := doc.Quantity + *req.AdjustBy
			if next < 0 {
				return repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, fmt.Sprintf("product configure stock: adjustment drops %s below zero", productID), nil)
			}
			doc.Quantity = next
		default:
			return repositories.NewInventoryError(repositories.InventoryErrorInvalidQuantity, "product configure stock: no adjustment given", nil)
		}

		doc.UpdatedAt = now
		doc.recalculate()
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(productID)
		return nil
	})
	if err != nil {
		return domain.Product{}, wrapProductError("products.configureStock", err)
	}
	return updated, nil
}

// List returns catalog entries ordered by name with cursor pagination.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	return r.list(ctx, filter, false)
}

// ListLowStock returns tracked products at or below their configured
// threshold, the most depleted first.
func (r *ProductRepository) ListLowStock(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	return r.list(ctx, filter, true)
}

func (r *ProductRepository) list(ctx context.Context, filter repositories.ProductListFilter, lowStockOnly bool) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, wrapProductError("products.list", err)
	}

	query := client.Collection(productsCollection).Query
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
	}
	if filter.ActiveOnly {
		query = query.Where("active", "==", true)
	}
	if lowStockOnly {
		// stockDelta is quantity minus the per-product threshold, kept
		// current on every write.
		query = query.Where("trackQuantity", "==", true).
			Where("stockDelta", "<=", 0).
			OrderBy("stockDelta", firestore.Asc)
	} else {
		query = query.OrderBy("name", firestore.Asc)
	}
	query = query.OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeToken[productPageToken](token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, wrapProductError("products.list", err)
		}
		if lowStockOnly {
			query = query.StartAfter(cursor.StockDelta, cursor.ID)
		} else {
			query = query.StartAfter(cursor.Name, cursor.ID)
		}
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Product]{}, wrapProductError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		products = append(products, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(products) > pageSize
	if hasMore {
		products = products[:pageSize]
	}
	var nextToken string
	if hasMore && len(products) > 0 {
		last := products[len(products)-1]
		encoded, err := pagination.EncodeToken(productPageToken{
			ID:         last.ID,
			Name:       last.Name,
			StockDelta: last.Quantity - last.LowStockThreshold,
		})
		if err != nil {
			return domain.CursorPage[domain.Product]{}, wrapProductError("products.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Product]{
		Items:         products,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type productDocument struct {
	SKU                     string    `firestore:"sku,omitempty"`
	Name                    string    `firestore:"name"`
	Category                string    `firestore:"category,omitempty"`
	UnitPrice               int64     `firestore:"unitPrice"`
	Currency                string    `firestore:"currency"`
	Quantity                int64     `firestore:"quantity"`
	TotalSold               int64     `firestore:"totalSold"`
	TrackQuantity           bool      `firestore:"trackQuantity"`
	AllowOutOfStockPurchase bool      `firestore:"allowOutOfStockPurchase"`
	LowStockThreshold       int64     `firestore:"lowStockThreshold"`
	StockDelta              int64     `firestore:"stockDelta"`
	Active                  bool      `firestore:"active"`
	CreatedAt               time.Time `firestore:"createdAt"`
	UpdatedAt               time.Time `firestore:"updatedAt"`
}

func (d *productDocument) recalculate() {
	d.StockDelta = d.Quantity - d.LowStockThreshold
}

func newProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		SKU:                     strings.TrimSpace(product.SKU),
		Name:                    strings.TrimSpace(product.Name),
		Category:                strings.TrimSpace(product.Category),
		UnitPrice:               product.UnitPrice,
		Currency:                strings.TrimSpace(product.Currency),
		Quantity:                product.Quantity,
		TotalSold:               product.TotalSold,
		TrackQuantity:           product.TrackQuantity,
		AllowOutOfStockPurchase: product.AllowOutOfStockPurchase,
		LowStockThreshold:       product.LowStockThreshold,
		Active:                  product.Active,
		CreatedAt:               product.CreatedAt.UTC(),
		UpdatedAt:               product.UpdatedAt.UTC(),
	}
	doc.recalculate()
	return doc
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:                      id,
		SKU:                     d.SKU,
		Name:                    d.Name,
		Category:                d.Category,
		UnitPrice:               d.UnitPrice,
		Currency:                d.Currency,
		Quantity:                d.Quantity,
		TotalSold:               d.TotalSold,
		TrackQuantity:           d.TrackQuantity,
		AllowOutOfStockPurchase: d.AllowOutOfStockPurchase,
		LowStockThreshold:       d.LowStockThreshold,
		Active:                  d.Active,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}

type productPageToken struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StockDelta int64  `json:"stockDelta"`
}

func wrapProductError(op string, err error) error {
	if err == nil {
		return nil
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		if invErr.Op == "" {
			invErr.Op = op
		}
		return invErr
	}
	return pfirestore.WrapError(op, err)
}
