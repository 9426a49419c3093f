package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/storeops/api/internal/domain"
	"github.com/storeops/api/internal/repositories"
)

// ErrCounterInvalidInput signals the caller provided invalid counter arguments.
var ErrCounterInvalidInput = errors.New("counter: invalid input")

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	Health   repositories.HealthRepository
	Counters repositories.CounterRepository
	Clock    func() time.Time
}

type systemService struct {
	health   repositories.HealthRepository
	counters repositories.CounterRepository
	clock    func() time.Time
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the utility service backing health and counter endpoints.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("system service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &systemService{
		health:   deps.Health,
		counters: deps.Counters,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (HealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return HealthReport{}, err
	}

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.clock()
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.HealthCheck{}
	}
	if report.Status == "" {
		report.Status = domain.HealthStatusOK
	}
	return report, nil
}

func (s *systemService) NextCounterValue(ctx context.Context, counterID string) (int64, error) {
	counterID = strings.TrimSpace(counterID)
	if counterID == "" {
		return 0, fmt.Errorf("%w: counter id is required", ErrCounterInvalidInput)
	}

	value, err := s.counters.Next(ctx, counterID, 1)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) && counterErr.Code == repositories.CounterErrorInvalidInput {
			return 0, fmt.Errorf("%w: %v", ErrCounterInvalidInput, err)
		}
		return 0, err
	}
	return value, nil
}
