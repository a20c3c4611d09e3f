package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables. An
// empty path starts from a zero config (environment and defaults only).
func Load(path string) (*GatewayConfig, error) {
	var cfg GatewayConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	return &cfg, nil
}

// LoadAndValidate loads config, applies env overrides and defaults, and
// validates.
func LoadAndValidate(path string) (*GatewayConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays the enumerated environment variables on top of
// whatever the file provided.
func (c *GatewayConfig) applyEnv() {
	envInt := func(name string, dst *int) {
		if v, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*dst = v
		}
	}

	envInt("PORT", &c.Server.Port)
	if v := os.Getenv("BUS_URL"); v != "" {
		c.Bus.URL = v
	}
	if v := os.Getenv("TOKEN_SIGNING_KEY"); v != "" {
		c.Auth.SigningKey = v
	}
	if v := os.Getenv("REQUIRE_AUTH"); v != "" {
		require, err := strconv.ParseBool(v)
		if err == nil {
			c.Auth.AllowAnonymous = !require
		}
	}
	envInt("MAX_SESSIONS_PER_TENANT", &c.Limits.MaxSessionsPerTenant)
	envInt("MAX_SUBS_PER_SESSION", &c.Limits.MaxSubsPerSession)
	if v, err := strconv.ParseInt(os.Getenv("MAX_FRAME_BYTES"), 10, 64); err == nil {
		c.Limits.MaxFrameBytes = v
	}
	envInt("OUTBOUND_QUEUE_DEPTH", &c.Limits.OutboundQueueDepth)
	if v, err := strconv.Atoi(os.Getenv("IDLE_TIMEOUT_SECONDS")); err == nil {
		c.Limits.IdleTimeout = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("AUTH_DEADLINE_SECONDS")); err == nil {
		c.Limits.AuthDeadline = time.Duration(v) * time.Second
	}
	if v, err := strconv.ParseFloat(os.Getenv("BROADCAST_RATE_PER_SEC"), 64); err == nil {
		c.Limits.BroadcastRatePerSec = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Server.AllowedOrigins = origins
	}
}

// IgnoredEnvVars names environment variables that are set but have no
// effect, so startup can warn about them. TOKEN_ALGORITHMS is ignored
// because the algorithm allow-list is fixed at compile time.
func IgnoredEnvVars() []string {
	var ignored []string
	if os.Getenv("TOKEN_ALGORITHMS") != "" {
		ignored = append(ignored, "TOKEN_ALGORITHMS")
	}
	return ignored
}
