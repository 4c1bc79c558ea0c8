package config

import (
	"fmt"
	"strings"
	"time"
)

// GatewayConfig holds the connection settings for the external payment provider.
type GatewayConfig struct {
	BaseURL  string               `koanf:"baseurl"`
	ClientID string               `koanf:"clientid"`
	Secret   string               `koanf:"secret"`
	Currency string               `koanf:"currency"`
	Timeout  time.Duration        `koanf:"timeout"`
	TokenTTL time.Duration        `koanf:"tokenttl"`
	Breaker  CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// String returns a string representation of the gateway configuration. The secret is never printed.
func (c *GatewayConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Payment Gateway ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  clientid: %s\n", c.ClientID))
	b.WriteString("  secret: ****\n")
	b.WriteString(fmt.Sprintf("  currency: %s\n", c.Currency))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  tokenttl: %s\n", c.TokenTTL))
	return b.String()
}

func (c *GatewayConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("gateway base URL is not configured")
	}
	if c.ClientID == "" || c.Secret == "" {
		return fmt.Errorf("gateway credentials are not configured")
	}
	if c.Currency == "" {
		return fmt.Errorf("gateway currency is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("gateway call timeout is not configured")
	}
	return c.Breaker.Validate()
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		return fmt.Errorf("circuit_breaker.consecutive_failures must be greater than 0")
	}
	if c.ErrorRatePercent < 0 || c.ErrorRatePercent > 100 {
		return fmt.Errorf("circuit_breaker.error_rate_percent must be between 0 and 100")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("circuit_breaker.open_timeout must be greater than 0")
	}
	return nil
}
