package di

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/platform/config"
	"github.com/storeops/api/internal/repositories"
)

type stubRegistry struct {
	closed   bool
	closeErr error
}

var _ repositories.Registry = (*stubRegistry)(nil)

func (r *stubRegistry) Close(ctx context.Context) error {
	r.closed = true
	return r.closeErr
}

func (r *stubRegistry) Orders() repositories.OrderRepository     { return stubOrderRepo{} }
func (r *stubRegistry) Products() repositories.ProductRepository { return stubProductRepo{} }
func (r *stubRegistry) Counters() repositories.CounterRepository { return stubCounterRepo{} }
func (r *stubRegistry) Stats() repositories.StatsRepository      { return stubStatsRepo{} }
func (r *stubRegistry) Health() repositories.HealthRepository    { return stubHealthRepo{} }

type stubOrderRepo struct{}

func (stubOrderRepo) Create(context.Context, repositories.OrderCreateRequest) (domain.Order, error) {
	return domain.Order{}, nil
}

func (stubOrderRepo) ApplyTransition(context.Context, repositories.OrderTransitionRequest) (domain.Order, error) {
	return domain.Order{}, nil
}

func (stubOrderRepo) SoftDelete(context.Context, repositories.OrderDeleteRequest) (domain.Order, error) {
	return domain.Order{}, nil
}

func (stubOrderRepo) FindByID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (stubOrderRepo) FindByIDs(context.Context, []string) (map[string]domain.Order, error) {
	return nil, nil
}

func (stubOrderRepo) List(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	return domain.CursorPage[domain.Order]{}, nil
}

type stubProductRepo struct{}

func (stubProductRepo) Upsert(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, nil
}

func (stubProductRepo) FindByID(context.Context, string) (domain.Product, error) {
	return domain.Product{}, nil
}

func (stubProductRepo) ConfigureStock(context.Context, repositories.StockConfigRequest) (domain.Product, error) {
	return domain.Product{}, nil
}

func (stubProductRepo) List(context.Context, repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	return domain.CursorPage[domain.Product]{}, nil
}

func (stubProductRepo) ListLowStock(context.Context, repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	return domain.CursorPage[domain.Product]{}, nil
}

type stubCounterRepo struct{}

func (stubCounterRepo) Next(context.Context, string, int64) (int64, error) { return 1, nil }

func (stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type stubStatsRepo struct{}

func (stubStatsRepo) OrdersPlacedBetween(context.Context, time.Time, time.Time) ([]domain.Order, error) {
	return nil, nil
}

func (stubStatsRepo) ProductCategories(context.Context) (map[string]string, error) {
	return nil, nil
}

type stubHealthRepo struct{}

func (stubHealthRepo) Collect(context.Context) (domain.HealthReport, error) {
	return domain.HealthReport{}, nil
}

func testConfig() config.Config {
	return config.Config{
		Orders: config.OrdersConfig{NumberPrefix: "SO"},
		Pricing: config.PricingConfig{
			TaxRateBasisPoints: 800,
			ShippingFlat:       500,
			Currency:           "usd",
		},
		Inventory: config.InventoryConfig{DefaultLowStockThreshold: 5},
		Stats:     config.StatsConfig{TopLimit: 5, MaxRangeDays: 366},
	}
}

func TestNewContainerWiresServices(t *testing.T) {
	reg := &stubRegistry{}

	container, err := NewContainer(context.Background(), testConfig(), reg, WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	if container.Services.Orders == nil {
		t.Error("expected order service to be wired")
	}
	if container.Services.Inventory == nil {
		t.Error("expected inventory service to be wired")
	}
	if container.Services.Stats == nil {
		t.Error("expected stats service to be wired")
	}
	if container.Services.System == nil {
		t.Error("expected system service to be wired")
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), testConfig(), nil); err == nil {
		t.Fatal("expected error when registry is nil")
	}
}

func TestContainerCloseReleasesRegistry(t *testing.T) {
	reg := &stubRegistry{closeErr: errors.New("close failed")}

	container, err := NewContainer(context.Background(), testConfig(), reg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	if err := container.Close(context.Background()); err == nil {
		t.Fatal("expected close error to propagate")
	}
	if !reg.closed {
		t.Error("expected registry Close to be invoked")
	}
}
