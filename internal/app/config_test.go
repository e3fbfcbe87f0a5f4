package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(logger.Nop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SchedulerZone != "Europe/Zurich" {
		t.Fatalf("defaults: unexpected addr=%q zone=%q", cfg.HTTPAddr, cfg.SchedulerZone)
	}
	if len(cfg.SchedulerTriggers) != 4 || cfg.SchedulerTriggers[0] != "00:30" {
		t.Fatalf("triggers: unexpected %v", cfg.SchedulerTriggers)
	}
	if cfg.SweepInterval != 5*time.Minute || cfg.SweepMaxAttempts != 5 {
		t.Fatalf("sweep: unexpected interval=%v attempts=%d", cfg.SweepInterval, cfg.SweepMaxAttempts)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ADMIN_NOTIFY_EMAILS", "ops@venue.ch, boss@venue.ch ,")
	t.Setenv("EMAIL_SWEEP_INTERVAL", "30s")
	t.Setenv("AUTO_ASSIGN_NOTIFY", "false")

	cfg, err := LoadConfig(logger.Nop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr: want=:9090 got=%q", cfg.HTTPAddr)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[1] != "boss@venue.ch" {
		t.Fatalf("AdminEmails: unexpected %v", cfg.AdminEmails)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("SweepInterval: want=30s got=%v", cfg.SweepInterval)
	}
	if cfg.AutoAssignNotify {
		t.Fatalf("AutoAssignNotify: want=false")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auto_assign_horizon_days: 7\nscheduler_zone: UTC\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SCHEDULER_ZONE", "Europe/Zurich")

	cfg, err := LoadConfig(logger.Nop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AutoAssignHorizonDays != 7 {
		t.Fatalf("HorizonDays: want=7 got=%d", cfg.AutoAssignHorizonDays)
	}
	if cfg.SchedulerZone != "Europe/Zurich" {
		t.Fatalf("env must win over file: got %q", cfg.SchedulerZone)
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "defaultsecret")
	if _, err := LoadConfig(logger.Nop()); err == nil {
		t.Fatalf("want error for default secret in production")
	}
}
