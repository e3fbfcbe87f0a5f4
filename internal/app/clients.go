package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/assignengine"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/redis"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/sendgrid"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/temporalx"
)

// Clients holds the optional outbound integrations. Each one is nil when its
// environment is not configured.
type Clients struct {
	Cache    redis.Cache
	Engine   assignengine.Client
	SendGrid sendgrid.Client
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	cache, err := redis.NewCacheFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis cache: %w", err)
	}
	engine, err := assignengine.NewFromEnv(log)
	if err != nil {
		closeCache(cache)
		return Clients{}, fmt.Errorf("init assignment engine client: %w", err)
	}
	mail, err := sendgrid.NewFromEnv(log)
	if err != nil {
		closeCache(cache)
		return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
	}
	tc, err := temporalx.NewClient(log)
	if err != nil {
		closeCache(cache)
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{
		Cache:    cache,
		Engine:   engine,
		SendGrid: mail,
		Temporal: tc,
	}, nil
}

func closeCache(c redis.Cache) {
	if c != nil {
		_ = c.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	closeCache(c.Cache)
}
