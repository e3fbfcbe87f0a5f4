package app

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
)

type Config struct {
	Env         string
	ServiceName string
	HTTPAddr    string

	JWTSecretKey string
	JWTIssuer    string
	CORSOrigins  []string

	PostgresDSN string
	AutoMigrate bool

	SchedulerZone     string
	SchedulerTriggers []string

	AutoAssignEnabled     bool
	AutoAssignNotify      bool
	AutoAssignHorizonDays int
	AutoAssignStaleAfter  time.Duration

	AdminEmails         []string
	PollIntervalSeconds int

	SweepEnabled     bool
	SweepInterval    time.Duration
	SweepSettleAge   time.Duration
	SweepMaxAge      time.Duration
	SweepMaxAttempts int
	SweepBatchSize   int
	SweepLeaseTTL    time.Duration

	PprofEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("service_name", "reservation-assignation")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("jwt_secret_key", "defaultsecret")
	v.SetDefault("jwt_issuer", "")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("scheduler_zone", scheduler.DefaultZone)
	v.SetDefault("scheduler_triggers", "00:30,06:30,12:30,18:30")
	v.SetDefault("auto_assign_enabled", true)
	v.SetDefault("auto_assign_notify", true)
	v.SetDefault("auto_assign_horizon_days", 14)
	v.SetDefault("auto_assign_stale_after", 30*time.Minute)
	v.SetDefault("admin_notify_emails", "")
	v.SetDefault("notifications_poll_seconds", 30)
	v.SetDefault("email_sweep_enabled", true)
	v.SetDefault("email_sweep_interval", 5*time.Minute)
	v.SetDefault("email_sweep_settle_age", 2*time.Minute)
	v.SetDefault("email_sweep_max_age", 48*time.Hour)
	v.SetDefault("email_sweep_max_attempts", 5)
	v.SetDefault("email_sweep_batch_size", 50)
	v.SetDefault("email_sweep_lease_ttl", 10*time.Minute)
	v.SetDefault("pprof_enabled", false)
}

// LoadConfig reads .env (when present), an optional CONFIG_FILE, then the
// environment, which wins over both.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Reading .env failed", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", v.ConfigFileUsed())
	}

	cfg := Config{
		Env:         v.GetString("app_env"),
		ServiceName: v.GetString("service_name"),
		HTTPAddr:    v.GetString("http_addr"),

		JWTSecretKey: v.GetString("jwt_secret_key"),
		JWTIssuer:    v.GetString("jwt_issuer"),
		CORSOrigins:  splitList(v.GetString("cors_allowed_origins")),

		PostgresDSN: v.GetString("postgres_dsn"),
		AutoMigrate: v.GetBool("db_auto_migrate"),

		SchedulerZone:     v.GetString("scheduler_zone"),
		SchedulerTriggers: splitList(v.GetString("scheduler_triggers")),

		AutoAssignEnabled:     v.GetBool("auto_assign_enabled"),
		AutoAssignNotify:      v.GetBool("auto_assign_notify"),
		AutoAssignHorizonDays: v.GetInt("auto_assign_horizon_days"),
		AutoAssignStaleAfter:  v.GetDuration("auto_assign_stale_after"),

		AdminEmails:         splitList(v.GetString("admin_notify_emails")),
		PollIntervalSeconds: v.GetInt("notifications_poll_seconds"),

		SweepEnabled:     v.GetBool("email_sweep_enabled"),
		SweepInterval:    v.GetDuration("email_sweep_interval"),
		SweepSettleAge:   v.GetDuration("email_sweep_settle_age"),
		SweepMaxAge:      v.GetDuration("email_sweep_max_age"),
		SweepMaxAttempts: v.GetInt("email_sweep_max_attempts"),
		SweepBatchSize:   v.GetInt("email_sweep_batch_size"),
		SweepLeaseTTL:    v.GetDuration("email_sweep_lease_ttl"),

		PprofEnabled: v.GetBool("pprof_enabled"),
	}
	if cfg.JWTSecretKey == "defaultsecret" && cfg.Env == "production" {
		return cfg, errors.New("JWT_SECRET_KEY must be set in production")
	}
	return cfg, nil
}

// splitList accepts comma separated values, as lists arrive from env vars.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
