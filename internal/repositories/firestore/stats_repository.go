package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/storeops/api/internal/domain"
	pfirestore "github.com/storeops/api/internal/platform/firestore"
)

// StatsRepository provides the read-only order and catalog snapshots the
// statistics aggregator works on.
type StatsRepository struct {
	provider *pfirestore.Provider
}

// NewStatsRepository constructs a Firestore-backed stats repository.
func NewStatsRepository(provider *pfirestore.Provider) (*StatsRepository, error) {
	if provider == nil {
		return nil, errors.New("stats repository requires firestore provider")
	}
	return &StatsRepository{provider: provider}, nil
}

// OrdersPlacedBetween streams every order with placedAt in [from, to).
func (r *StatsRepository) OrdersPlacedBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("stats repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("stats.orders", err)
	}

	query := client.Collection(ordersCollection).Query.
		Where("placedAt", ">=", from.UTC()).
		Where("placedAt", "<", to.UTC()).
		OrderBy("placedAt", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("stats.orders", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}
	return orders, nil
}

// ProductCategories maps every product id to its category for report rollups.
func (r *StatsRepository) ProductCategories(ctx context.Context) (map[string]string, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("stats repository not initialised")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("stats.categories", err)
	}

	iter := client.Collection(productsCollection).Select("category").Documents(ctx)
	defer iter.Stop()

	categories := make(map[string]string)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("stats.categories", err)
		}
		if value, err := snap.DataAt("category"); err == nil {
			if category, ok := value.(string); ok {
				categories[snap.Ref.ID] = category
			}
		}
	}
	return categories, nil
}
