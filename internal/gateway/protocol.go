package gateway

import (
	"encoding/json"
	"time"
)

// Application close codes (4xxx range).
const (
	CloseAuthFailed       = 4001 // token missing, malformed, expired, bad signature or algorithm
	CloseTenantMismatch   = 4003 // token tenant differs from the URL tenant
	CloseTenantCapacity   = 4008 // tenant session cap reached
	CloseSlowConsumer     = 4009 // backpressure drop threshold exceeded
	CloseIdleTimeout      = 4010 // no inbound frame or pong inside the idle window
	CloseForcedDisconnect = 4011 // admin disconnect
)

// Client frame types.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameJoinRoom    = "join_room"
	frameLeaveRoom   = "leave_room"
	frameBroadcast   = "broadcast"
	framePing        = "ping"
	frameTyping      = "typing"
	frameRead        = "read"
)

// Error frame codes.
const (
	errBadFrame      = "bad_frame"
	errUnknownType   = "unknown_type"
	errMissingField  = "missing_field"
	errInvalidTopic  = "invalid_topic"
	errNotSubscribed = "not_subscribed"
	errRateLimited   = "rate_limited"
)

// clientFrame is one inbound JSON object. The Type discriminator picks
// which other fields are meaningful.
type clientFrame struct {
	Type      string          `json:"type"`
	Topics    []string        `json:"topics,omitempty"`
	Room      string          `json:"room,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Typing    *bool           `json:"typing,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

// failedTopic reports a per-topic rejection inside an ack.
type failedTopic struct {
	Topic  string `json:"topic"`
	Reason string `json:"reason"`
}

// ackFrame acknowledges subscribe/unsubscribe with per-topic outcomes.
type ackFrame struct {
	Type     string        `json:"type"` // "subscribed" or "unsubscribed"
	Accepted []string      `json:"accepted"`
	Failed   []failedTopic `json:"failed"`
}

// pongFrame answers a client ping with the server clock.
type pongFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// errorFrame reports an in-session fault that does not end the session.
type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
