// internal/workers/pos/resolve-item/config.go
package resolveitem

import (
	"time"

	"pos-interpreter/internal/pos/resolver"
)

type Config struct {
	Timeout time.Duration
	Blend   resolver.BlendConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Blend:   resolver.DefaultBlendConfig(),
	}
}
