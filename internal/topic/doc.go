// Package topic implements the routing-key grammar shared by the room
// index, the session loop, the bus bridge, and the admin surface.
//
// Topics are dot-delimited and namespaced by their first segment:
//
//	field.<id>.<kind>    e.g. field.F001.ndvi
//	tenant.<id>[.<kind>] e.g. tenant.T1, tenant.T1.alerts
//	user.<id>            e.g. user.U42
//	chat.<id>            e.g. chat.C9
//	global[.<kind>]      e.g. global.announcements
//
// Subscriptions may end in a wildcard: "*" matches exactly one trailing
// segment, ">" matches one or more trailing segments. Wildcards are only
// valid in the final position and never appear in event topics.
package topic
