package config

import (
	"fmt"
	"os"
)

type Config struct {
	Port       string
	Env        string
	GatewayURL string
	DBSource   string
}

// LoadAPI reads the flow/API server configuration. GATEWAY_URL points at the
// backend service of record and is required.
func LoadAPI() (*Config, error) {
	gatewayURL := os.Getenv("GATEWAY_URL")
	if gatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL environment variable is required")
	}

	return &Config{
		Port:       envOr("SERVER_PORT", "8080"),
		Env:        envOr("ENVIRONMENT", "development"),
		GatewayURL: gatewayURL,
	}, nil
}

// LoadLedger reads the backend service configuration. DB_SOURCE is required.
func LoadLedger() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	return &Config{
		Port:     envOr("SERVER_PORT", "8081"),
		Env:      envOr("ENVIRONMENT", "development"),
		DBSource: dbSource,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
