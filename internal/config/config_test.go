package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
industry:
  default_broker_fee_percent: 1.5
  line_rental_rates:
    manufacturing: 1200
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default", cfg.Server.Host)
	}
	if cfg.Industry.DefaultBrokerFeePercent != 1.5 {
		t.Errorf("DefaultBrokerFeePercent = %v, expected 1.5", cfg.Industry.DefaultBrokerFeePercent)
	}
	if cfg.Industry.DefaultSalesTaxPercent != 3.6 {
		t.Errorf("DefaultSalesTaxPercent = %v, expected default 3.6", cfg.Industry.DefaultSalesTaxPercent)
	}
	if rate, ok := cfg.Industry.LineRentalRate("manufacturing"); !ok || rate != 1200 {
		t.Errorf("LineRentalRate(manufacturing) = %v, %v", rate, ok)
	}
	if _, ok := cfg.Industry.LineRentalRate("reaction"); ok {
		t.Error("LineRentalRate(reaction) should be unset")
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TreeBuilder.MaxParallel != 4 {
		t.Errorf("TreeBuilder.MaxParallel = %d, expected 4", cfg.TreeBuilder.MaxParallel)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DEFAULT_SALES_TAX_PERCENT", "2.25")
	t.Setenv("DEFAULT_BROKER_FEE_PERCENT", "not-a-number")
	t.Setenv("PRICING_REFRESH_CRON", "")
	t.Setenv("REDIS_URL", "redis://:hunter2@cache:6380/3")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Industry.DefaultSalesTaxPercent != 2.25 {
		t.Errorf("DefaultSalesTaxPercent = %v, expected 2.25", cfg.Industry.DefaultSalesTaxPercent)
	}
	if cfg.Industry.DefaultBrokerFeePercent != 3.0 {
		t.Errorf("unparseable fee should keep default, got %v", cfg.Industry.DefaultBrokerFeePercent)
	}
	if cfg.Pricing.RefreshCron != "" {
		t.Errorf("empty PRICING_REFRESH_CRON should disable the scheduler, got %q", cfg.Pricing.RefreshCron)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6380" || cfg.Redis.Password != "hunter2" || cfg.Redis.DB != 3 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Pricing.RefreshCron = "@every 2h"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Pricing.RefreshCron != "@every 2h" {
		t.Errorf("RefreshCron = %q", loaded.Pricing.RefreshCron)
	}
}
