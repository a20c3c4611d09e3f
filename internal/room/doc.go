// Package room maintains the bidirectional index between topics and
// subscribed sessions. A room is not an allocated object: it is the row
// for one topic, created on first subscription and evicted when its last
// subscriber leaves.
//
// Literal subscriptions and wildcard subscriptions are kept in separate
// maps so resolving a selective literal topic stays O(subscribers) and
// wildcard resolution scans only the wildcard rows.
package room
