package config

import "errors"

// Validate checks that required fields are set and values are sane.
// Called after defaults are applied, so only genuinely required fields
// and out-of-range values can fail.
func (c *GatewayConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be 1-65535")
	}
	if c.Bus.URL == "" {
		return errors.New("bus.url is required")
	}
	if !c.Auth.AllowAnonymous && c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required unless auth.allow_anonymous is set")
	}
	if c.Limits.MaxSessionsPerTenant < 1 {
		return errors.New("limits.max_sessions_per_tenant must be >= 1")
	}
	if c.Limits.MaxSubsPerSession < 1 {
		return errors.New("limits.max_subs_per_session must be >= 1")
	}
	if c.Limits.MaxFrameBytes < 1024 {
		return errors.New("limits.max_frame_bytes must be >= 1024")
	}
	if c.Limits.OutboundQueueDepth < 1 {
		return errors.New("limits.outbound_queue_depth must be >= 1")
	}
	if c.Limits.BroadcastRatePerSec <= 0 {
		return errors.New("limits.broadcast_rate_per_sec must be > 0")
	}
	if c.Bus.ReconnectBaseWait > c.Bus.ReconnectMaxWait {
		return errors.New("bus.reconnect_base_wait must not exceed bus.reconnect_max_wait")
	}
	return nil
}
