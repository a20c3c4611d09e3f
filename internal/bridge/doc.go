// Package bridge owns the single connection to the upstream message bus
// and forwards bus messages into the dispatcher.
//
// The bridge subscribes to a fixed set of wildcard subjects at start and
// never buffers across an outage: events published while the bus is down
// are lost to this gateway, and the readiness endpoint reflects the
// degraded state so load balancers can drain.
package bridge
