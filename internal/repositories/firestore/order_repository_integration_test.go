//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/storeops/api/internal/domain"
	pconfig "github.com/storeops/api/internal/platform/config"
	pfirestore "github.com/storeops/api/internal/platform/firestore"
	"github.com/storeops/api/internal/repositories"
)

func TestOrderRepositoryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "orders-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewOrderRepository(provider)
	if err != nil {
		t.Fatalf("new order repository: %v", err)
	}
	productRepo, err := NewProductRepository(provider)
	if err != nil {
		t.Fatalf("new product repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("provider client: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)

	seedProduct := func(id string, quantity int64, unitPrice int64) {
		t.Helper()
		doc := map[string]any{
			"sku":                     strings.ToUpper(id),
			"name":                    id,
			"category":                "furniture",
			"unitPrice":               unitPrice,
			"currency":                "usd",
			"quantity":                quantity,
			"totalSold":               int64(0),
			"trackQuantity":           true,
			"allowOutOfStockPurchase": false,
			"lowStockThreshold":       int64(2),
			"stockDelta":              quantity - 2,
			"active":                  true,
			"createdAt":               now,
			"updatedAt":               now,
		}
		if _, err := client.Collection(productsCollection).Doc(id).Set(ctx, doc); err != nil {
			t.Fatalf("seed product %s: %v", id, err)
		}
	}

	seedProduct("prd_chair", 10, 2500)
	seedProduct("prd_lamp", 2, 1000)

	draft := domain.Order{
		ID:          "ord_int_1",
		OrderNumber: "SO-2025-000001",
		Customer:    domain.CustomerRef{ID: "cus_int", Name: "Ada", Email: "ada@example.com"},
		Currency:    "usd",
		Status:      domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		StatusHistory: []domain.StatusChange{
			{Status: domain.OrderStatusPending, At: now, Actor: "test"},
		},
		PlacedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := repo.Create(ctx, repositories.OrderCreateRequest{
		Draft: draft,
		Lines: []repositories.OrderLineInput{
			{ProductID: "prd_chair", Quantity: 2},
			{ProductID: "prd_lamp", Quantity: 1},
		},
		Discount: 500,
		Pricing:  domain.PricingConfig{TaxRateBasisPoints: 1000, ShippingFlat: 300},
		Now:      now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1 got %d", created.Version)
	}
	if created.Totals.Subtotal != 6000 {
		t.Fatalf("expected subtotal 6000 got %d", created.Totals.Subtotal)
	}

	chair, err := productRepo.FindByID(ctx, "prd_chair")
	if err != nil {
		t.Fatalf("find chair: %v", err)
	}
	if chair.Quantity != 8 || chair.TotalSold != 2 {
		t.Fatalf("expected chair quantity=8 sold=2 got quantity=%d sold=%d", chair.Quantity, chair.TotalSold)
	}

	// Reserving beyond remaining stock fails and leaves the ledgers untouched.
	_, err = repo.Create(ctx, repositories.OrderCreateRequest{
		Draft: func() domain.Order {
			d := draft
			d.ID = "ord_int_2"
			return d
		}(),
		Lines: []repositories.OrderLineInput{{ProductID: "prd_lamp", Quantity: 5}},
		Now:   now,
	})
	var invErr *repositories.InventoryError
	if !errors.As(err, &invErr) || invErr.Code != repositories.InventoryErrorInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "ord_int_2"); err == nil {
		t.Fatalf("expected failed order to be absent")
	}
	lamp, err := productRepo.FindByID(ctx, "prd_lamp")
	if err != nil {
		t.Fatalf("find lamp: %v", err)
	}
	if lamp.Quantity != 1 {
		t.Fatalf("expected lamp quantity=1 got %d", lamp.Quantity)
	}

	// Version and status guards reject stale writes.
	staleVersion := int64(99)
	_, err = repo.ApplyTransition(ctx, repositories.OrderTransitionRequest{
		OrderID:         created.ID,
		Target:          domain.OrderStatusProcessing,
		ExpectedVersion: &staleVersion,
		Now:             now.Add(time.Minute),
	})
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	processing, err := repo.ApplyTransition(ctx, repositories.OrderTransitionRequest{
		OrderID: created.ID,
		Target:  domain.OrderStatusProcessing,
		Actor:   "ops@example.com",
		Now:     now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("transition to processing: %v", err)
	}
	if processing.Status != domain.OrderStatusProcessing || processing.Version != 2 {
		t.Fatalf("expected processing v2 got %s v%d", processing.Status, processing.Version)
	}

	// Cancelling restores the reserved quantities in the same transaction.
	cancelled, err := repo.ApplyTransition(ctx, repositories.OrderTransitionRequest{
		OrderID: created.ID,
		Target:  domain.OrderStatusCancelled,
		Actor:   "ops@example.com",
		Note:    "customer request",
		Now:     now.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.InventoryRestored {
		t.Fatalf("expected inventory restored flag")
	}
	chair, err = productRepo.FindByID(ctx, "prd_chair")
	if err != nil {
		t.Fatalf("find chair after cancel: %v", err)
	}
	if chair.Quantity != 10 || chair.TotalSold != 0 {
		t.Fatalf("expected chair restored to quantity=10 sold=0 got quantity=%d sold=%d", chair.Quantity, chair.TotalSold)
	}
	lamp, err = productRepo.FindByID(ctx, "prd_lamp")
	if err != nil {
		t.Fatalf("find lamp after cancel: %v", err)
	}
	if lamp.Quantity != 2 {
		t.Fatalf("expected lamp restored to quantity=2 got %d", lamp.Quantity)
	}

	// Cancelling again is rejected; a second delete must not double restore.
	_, err = repo.ApplyTransition(ctx, repositories.OrderTransitionRequest{
		OrderID: created.ID,
		Target:  domain.OrderStatusCancelled,
		Now:     now.Add(3 * time.Minute),
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	deleted, err := repo.SoftDelete(ctx, repositories.OrderDeleteRequest{
		OrderID: created.ID,
		Actor:   "ops@example.com",
		Now:     now.Add(4 * time.Minute),
	})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !deleted.Deleted {
		t.Fatalf("expected deleted flag")
	}
	chair, err = productRepo.FindByID(ctx, "prd_chair")
	if err != nil {
		t.Fatalf("find chair after delete: %v", err)
	}
	if chair.Quantity != 10 {
		t.Fatalf("expected no double restore, chair quantity=%d", chair.Quantity)
	}

	// Deleted orders disappear from reads and listings.
	if _, err := repo.FindByID(ctx, created.ID); err == nil {
		t.Fatalf("expected deleted order to be hidden")
	}
	page, err := repo.List(ctx, repositories.OrderListFilter{
		CustomerID: "cus_int",
		Pagination: domain.Pagination{PageSize: 10},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty listing, got %d orders", len(page.Items))
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
