// Package gateway implements the client-facing WebSocket endpoint and
// the admin HTTP surface.
//
// Each accepted upgrade becomes a session with two goroutines: a read
// loop that parses client frames and serves the control plane, and a
// single writer that drains the session's outbound queue so delivery
// order matches dispatch order. The admin surface shares the listener
// and routes its broadcasts through the dispatcher so they obey the
// same backpressure policy as bus-originated events.
package gateway
