package config

import (
	"fmt"
	"strings"
	"time"
)

// LookupConfig holds the connection settings for the external product catalog.
type LookupConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the lookup configuration.
func (c *LookupConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Product Lookup ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *LookupConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("product lookup base URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("product lookup timeout is not configured")
	}
	return nil
}
