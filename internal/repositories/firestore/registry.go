package firestore

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	pfirestore "github.com/storeops/api/internal/platform/firestore"
	"github.com/storeops/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the accessor
// interface the service container consumes.
type Registry struct {
	provider *pfirestore.Provider

	orders   *OrderRepository
	products *ProductRepository
	counters *CounterRepository
	stats    *StatsRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// RegistryOption customises registry construction.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	extraChecks []repositories.DependencyCheck
}

// WithDependencyChecks adds readiness probes beyond the built-in Firestore check.
func WithDependencyChecks(checks ...repositories.DependencyCheck) RegistryOption {
	return func(o *registryOptions) {
		o.extraChecks = append(o.extraChecks, checks...)
	}
}

// NewRegistry builds all Firestore repositories from a shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	options := registryOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	stats, err := NewStatsRepository(provider)
	if err != nil {
		return nil, err
	}

	checks := make([]repositories.DependencyCheck, 0, 1+len(options.extraChecks))
	checks = append(checks, repositories.DependencyCheck{
		Name:    "firestore",
		Timeout: 1500 * time.Millisecond,
		Check: func(ctx context.Context) error {
			client, err := provider.Client(ctx)
			if err != nil {
				return err
			}
			iter := client.Collections(ctx)
			_, err = iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		},
	})
	checks = append(checks, options.extraChecks...)

	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		orders:   orders,
		products: products,
		counters: counters,
		stats:    stats,
		health:   health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Products() repositories.ProductRepository { return r.products }
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }
func (r *Registry) Stats() repositories.StatsRepository      { return r.stats }
func (r *Registry) Health() repositories.HealthRepository    { return r.health }
