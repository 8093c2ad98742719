package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points to a running server, e.g. http://localhost:8080
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// AUTH_SECRET must be the server's secret so the suite can issue session tokens
	AuthSecret string `envconfig:"AUTH_SECRET"`
	// E2E_DEBUG_JSON allows dumping every received frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
