package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Settings are the process-wide knobs, as opposed to the per-tenant
// configuration discovered by LoadTenants.
type Settings struct {
	LogLevel          string        `env:"LOG_LEVEL" env-default:"info"`
	OpsAddr           string        `env:"OPS_ADDR" env-default:":9090"`
	SuperviseInterval time.Duration `env:"SUPERVISE_INTERVAL" env-default:"30s"`
	ConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" env-default:"10s"`
	EventWaitTimeout  time.Duration `env:"EVENT_WAIT_TIMEOUT" env-default:"60s"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" env-default:"15s"`
}

// Load reads Settings from the environment.
func Load() (*Settings, error) {
	var cfg Settings
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return &cfg, nil
}
