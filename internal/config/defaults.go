package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort                  = 8080
	DefaultWSPath                = "/ws"
	DefaultSubjectRoot           = "agro"
	DefaultReconnectBaseWait     = 500 * time.Millisecond
	DefaultReconnectMaxWait      = 30 * time.Second
	DefaultConnectWindow         = 30 * time.Second
	DefaultMaxSessionsPerTenant  = 1000
	DefaultMaxSubsPerSession     = 50
	DefaultMaxFrameBytes         = 64 * 1024
	DefaultOutboundQueueDepth    = 256
	DefaultIdleTimeout           = 5 * time.Minute
	DefaultAuthDeadline          = 10 * time.Second
	DefaultDrainWindow           = 2 * time.Second
	DefaultBroadcastRatePerSec   = 10
	DefaultBroadcastBurst        = 30
	DefaultSlowConsumerThreshold = 64
	DefaultSlowConsumerWindow    = 10 * time.Second
	DefaultDispatchBuffer        = 4096
)

func (c *GatewayConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}

	if c.Bus.SubjectRoot == "" {
		c.Bus.SubjectRoot = DefaultSubjectRoot
	}
	if c.Bus.ReconnectBaseWait == 0 {
		c.Bus.ReconnectBaseWait = DefaultReconnectBaseWait
	}
	if c.Bus.ReconnectMaxWait == 0 {
		c.Bus.ReconnectMaxWait = DefaultReconnectMaxWait
	}
	if c.Bus.ConnectWindow == 0 {
		c.Bus.ConnectWindow = DefaultConnectWindow
	}

	if c.Limits.MaxSessionsPerTenant == 0 {
		c.Limits.MaxSessionsPerTenant = DefaultMaxSessionsPerTenant
	}
	if c.Limits.MaxSubsPerSession == 0 {
		c.Limits.MaxSubsPerSession = DefaultMaxSubsPerSession
	}
	if c.Limits.MaxFrameBytes == 0 {
		c.Limits.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if c.Limits.OutboundQueueDepth == 0 {
		c.Limits.OutboundQueueDepth = DefaultOutboundQueueDepth
	}
	if c.Limits.IdleTimeout == 0 {
		c.Limits.IdleTimeout = DefaultIdleTimeout
	}
	if c.Limits.AuthDeadline == 0 {
		c.Limits.AuthDeadline = DefaultAuthDeadline
	}
	if c.Limits.DrainWindow == 0 {
		c.Limits.DrainWindow = DefaultDrainWindow
	}
	if c.Limits.BroadcastRatePerSec == 0 {
		c.Limits.BroadcastRatePerSec = DefaultBroadcastRatePerSec
	}
	if c.Limits.BroadcastBurst == 0 {
		c.Limits.BroadcastBurst = DefaultBroadcastBurst
	}
	if c.Limits.SlowConsumerThreshold == 0 {
		c.Limits.SlowConsumerThreshold = DefaultSlowConsumerThreshold
	}
	if c.Limits.SlowConsumerWindow == 0 {
		c.Limits.SlowConsumerWindow = DefaultSlowConsumerWindow
	}
	if c.Limits.DispatchBuffer == 0 {
		c.Limits.DispatchBuffer = DefaultDispatchBuffer
	}
}
