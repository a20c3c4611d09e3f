// Package session owns the live state of client connections.
//
// A Session is created when a transport upgrade is accepted and moves
// through Handshaking -> Authenticated -> Closing -> Closed. The
// Registry is the exclusive owner of Session objects and keeps them
// indexed by id, by tenant, and by (tenant, user); the room index only
// ever holds session ids, which the Registry invalidates before a
// session is released.
package session
