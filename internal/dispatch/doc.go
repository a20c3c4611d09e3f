// Package dispatch turns routed events into per-session deliveries.
//
// A single goroutine consumes the event stream, resolves recipients
// through the room index, encodes the outbound frame exactly once, and
// applies each session's backpressure policy. Because dispatch is
// serialized and every session drains its queue with one writer, two
// events on the same topic reach a session in dispatch order.
package dispatch
