// Package config defines the gateway configuration, loaded from a YAML
// file with ${VAR} expansion and overridable through the environment.
package config

import "time"

// GatewayConfig is the root configuration.
type GatewayConfig struct {
	Server ServerConfig `yaml:"server"`
	Bus    BusConfig    `yaml:"bus"`
	Auth   AuthConfig   `yaml:"auth"`
	Limits LimitsConfig `yaml:"limits"`
}

// ServerConfig configures the HTTP listener shared by the WebSocket
// endpoint and the admin surface.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	WSPath         string   `yaml:"ws_path"`
	AllowedOrigins []string `yaml:"allowed_origins"` // empty = same-origin only
}

// BusConfig configures the upstream bus connection.
type BusConfig struct {
	URL               string        `yaml:"url"`
	SubjectRoot       string        `yaml:"subject_root"`
	ReconnectBaseWait time.Duration `yaml:"reconnect_base_wait"`
	ReconnectMaxWait  time.Duration `yaml:"reconnect_max_wait"`
	ConnectWindow     time.Duration `yaml:"connect_window"`
}

// AuthConfig configures credential validation.
//
// The signing algorithm allow-list is a compile-time constant in the
// token package; TOKEN_ALGORITHMS in the environment is deliberately
// ignored.
type AuthConfig struct {
	SigningKey string `yaml:"signing_key"`
	// AllowAnonymous skips credential validation and hands out anonymous
	// identities. Development only.
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

// LimitsConfig bounds per-session and per-tenant resource use. Every
// limit is enforced, not advisory.
type LimitsConfig struct {
	MaxSessionsPerTenant  int           `yaml:"max_sessions_per_tenant"`
	MaxSubsPerSession     int           `yaml:"max_subs_per_session"`
	MaxFrameBytes         int64         `yaml:"max_frame_bytes"`
	OutboundQueueDepth    int           `yaml:"outbound_queue_depth"`
	IdleTimeout           time.Duration `yaml:"idle_timeout"`
	AuthDeadline          time.Duration `yaml:"auth_deadline"`
	DrainWindow           time.Duration `yaml:"drain_window"`
	BroadcastRatePerSec   float64       `yaml:"broadcast_rate_per_sec"`
	BroadcastBurst        int           `yaml:"broadcast_burst"`
	SlowConsumerThreshold int           `yaml:"slow_consumer_threshold"`
	SlowConsumerWindow    time.Duration `yaml:"slow_consumer_window"`
	DispatchBuffer        int           `yaml:"dispatch_buffer"`
}
