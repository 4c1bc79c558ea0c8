// Package configloader layers configuration sources: yaml file, .env file,
// then process environment, each overriding the previous one.
package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const configFile = "config.yaml"

type Validator interface {
	Validate() error
}

// Load reads config.yaml, .env and <PREFIX>_ environment variables into T and
// validates the result. The prefix is the upper-cased service name; keys map
// PREFIX_HTTP_PORT -> http.port.
func Load[T Validator](serviceName string) (T, error) {
	var cfg T
	k := koanf.New(".")
	envPrefix := strings.ToUpper(serviceName) + "_"

	keyFromEnv := func(name string) string {
		name = strings.ToLower(name)
		name = strings.TrimPrefix(name, strings.ToLower(envPrefix))
		return strings.ReplaceAll(name, "_", ".")
	}

	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
		}
	}

	if dotenv, err := godotenv.Read(".env"); err == nil {
		values := make(map[string]any, len(dotenv))
		for name, value := range dotenv {
			values[keyFromEnv(name)] = value
		}
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// System environment wins over both files.
	if err := k.Load(env.Provider(envPrefix, ".", keyFromEnv), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
