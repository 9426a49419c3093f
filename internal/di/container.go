package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/storeops/api/internal/platform/config"
	"github.com/storeops/api/internal/platform/notify"
	"github.com/storeops/api/internal/platform/requestctx"
	"github.com/storeops/api/internal/repositories"
	"github.com/storeops/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders    services.OrderService
	Inventory services.InventoryService
	Stats     services.StatsService
	System    services.SystemService
}

// Container wires repositories, services, and messaging infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	pubsubClient *pubsub.Client
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	logger    *zap.Logger
	publisher services.OrderEventPublisher
}

// WithLogger supplies the base logger used by services for structured events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithOrderEventPublisher overrides the Pub/Sub publisher, primarily for tests.
func WithOrderEventPublisher(publisher services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.publisher = publisher
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides a
// Firestore-backed registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	container := &Container{
		Config:       cfg,
		Repositories: reg,
	}

	publisher := options.publisher
	if publisher == nil && strings.TrimSpace(cfg.PubSub.OrderEventsTopic) != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		container.pubsubClient = client

		pubsubPublisher, err := notify.NewPubSubOrderEventPublisher(client.Topic(cfg.PubSub.OrderEventsTopic))
		if err != nil {
			closeErr := client.Close()
			return nil, errors.Join(fmt.Errorf("build order event publisher: %w", err), closeErr)
		}
		publisher = pubsubPublisher
	}

	svc, err := buildServices(cfg, reg, publisher, options.logger)
	if err != nil {
		if container.pubsubClient != nil {
			_ = container.pubsubClient.Close()
		}
		return nil, err
	}
	container.Services = svc

	return container, nil
}

// Close releases repository clients and the Pub/Sub connection.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var errs []error
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(cfg config.Config, reg repositories.Registry, publisher services.OrderEventPublisher, logger *zap.Logger) (Services, error) {
	var svc Services

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Counters: reg.Counters(),
		Events:   publisher,
		Logger:   serviceEventLogger(logger),
		Pricing: services.PricingConfig{
			TaxRateBasisPoints:    cfg.Pricing.TaxRateBasisPoints,
			ShippingFlat:          cfg.Pricing.ShippingFlat,
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		},
		NumberPrefix: cfg.Orders.NumberPrefix,
		Currency:     cfg.Pricing.Currency,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Products:          reg.Products(),
		Currency:          cfg.Pricing.Currency,
		LowStockThreshold: cfg.Inventory.DefaultLowStockThreshold,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inventory service: %w", err)
	}
	svc.Inventory = inventorySvc

	statsSvc, err := services.NewStatsService(services.StatsServiceDeps{
		Stats:        reg.Stats(),
		TopLimit:     cfg.Stats.TopLimit,
		MaxRangeDays: cfg.Stats.MaxRangeDays,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stats service: %w", err)
	}
	svc.Stats = statsSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		Health:   reg.Health(),
		Counters: reg.Counters(),
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

// serviceEventLogger adapts the zap logger to the callback services expect.
// Request-scoped loggers injected by middleware take precedence over the base
// logger supplied at construction.
func serviceEventLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.LoggerOr(ctx, base)

		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
