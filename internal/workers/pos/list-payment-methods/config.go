// internal/workers/pos/list-payment-methods/config.go
package listpaymentmethods

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 20 * time.Second,
	}
}
