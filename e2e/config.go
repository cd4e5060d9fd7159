package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"localhost:3000"`
	// E2E_DEBUG_JSON allows dumping full websocket envelopes as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
