package temporalx

import (
	"strings"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	// ScheduleID names the Temporal Schedule that fires the auto-assign workflow.
	ScheduleID   string
	ScheduleZone string
}

func LoadConfig() Config {
	return Config{
		Address:   strings.TrimSpace(envutil.String("TEMPORAL_ADDRESS", "")),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "reservations"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "reservations"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		ScheduleID:   envutil.String("TEMPORAL_AUTO_ASSIGN_SCHEDULE_ID", "auto-assign"),
		ScheduleZone: envutil.String("SCHEDULER_ZONE", scheduler.DefaultZone),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) hasTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
