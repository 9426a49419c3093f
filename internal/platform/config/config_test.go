package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID": "storeops-test",
		}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Orders.NumberPrefix != "SO" {
		t.Fatalf("number prefix = %q", cfg.Orders.NumberPrefix)
	}
	if cfg.Pricing.TaxRateBasisPoints != 800 {
		t.Fatalf("tax rate = %d", cfg.Pricing.TaxRateBasisPoints)
	}
	if cfg.PubSub.ProjectID != "storeops-test" {
		t.Fatalf("pubsub project should default to firestore project, got %q", cfg.PubSub.ProjectID)
	}
	if cfg.Stats.TopLimit != 5 {
		t.Fatalf("stats top limit = %d", cfg.Stats.TopLimit)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" || cfg.Idempotency.TTL != 24*time.Hour {
		t.Fatalf("idempotency defaults not applied: %+v", cfg.Idempotency)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID":        "storeops-test",
			"API_SERVER_PORT":                 "9090",
			"API_SERVER_READ_TIMEOUT":         "5s",
			"API_ORDERS_NUMBER_PREFIX":        "ORD",
			"API_PRICING_TAX_RATE_BPS":        "1000",
			"API_PRICING_SHIPPING_FLAT":       "750",
			"API_PRICING_FREE_SHIPPING_ABOVE": "20000",
			"API_PRICING_CURRENCY":            "EUR",
			"API_PUBSUB_PROJECT_ID":           "storeops-events",
			"API_PUBSUB_ORDER_EVENTS_TOPIC":   "order-events",
			"API_STATS_TOP_LIMIT":             "10",
		}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("server overrides not applied: %+v", cfg.Server)
	}
	if cfg.Orders.NumberPrefix != "ORD" {
		t.Fatalf("number prefix = %q", cfg.Orders.NumberPrefix)
	}
	if cfg.Pricing.TaxRateBasisPoints != 1000 || cfg.Pricing.ShippingFlat != 750 || cfg.Pricing.FreeShippingThreshold != 20000 {
		t.Fatalf("pricing overrides not applied: %+v", cfg.Pricing)
	}
	if cfg.Pricing.Currency != "eur" {
		t.Fatalf("currency should be lowercased, got %q", cfg.Pricing.Currency)
	}
	if cfg.PubSub.ProjectID != "storeops-events" || cfg.PubSub.OrderEventsTopic != "order-events" {
		t.Fatalf("pubsub overrides not applied: %+v", cfg.PubSub)
	}
	if cfg.Stats.TopLimit != 10 {
		t.Fatalf("stats top limit = %d", cfg.Stats.TopLimit)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"API_PRICING_TAX_RATE_BPS": "-1",
	}))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := vErr.Fields()
	want := map[string]bool{"Firestore.ProjectID": false, "Pricing.TaxRateBasisPoints": false}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("validation missing field %s, got %v", field, fields)
		}
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "# local overrides\nAPI_FIRESTORE_PROJECT_ID=dotenv-project\nexport API_SERVER_PORT=7070\nAPI_PRICING_CURRENCY=\"jpy\"\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Firestore.ProjectID != "dotenv-project" {
		t.Fatalf("project = %q", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Pricing.Currency != "jpy" {
		t.Fatalf("currency = %q", cfg.Pricing.Currency)
	}

	// Explicit env maps win over dotenv values.
	cfg, err = Load(WithoutSystemEnv(), WithEnvFile(envFile), WithEnvMap(map[string]string{
		"API_SERVER_PORT": "6060",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Fatalf("env map should override dotenv, got %q", cfg.Server.Port)
	}
}
