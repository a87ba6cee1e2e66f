// Package redisbus implements queue.EventBus over redis/go-redis/v9
// Pub/Sub. Publishing and subscribing are both per-tenant-channel:
// events for tenant "acme" go to channel "events:acme" and also to the
// wildcard channel "events:*", which is the one channel a wildcard
// subscription ("") listens on.
//
// Pub/Sub delivery is fire-and-forget: a subscriber that is not
// currently connected simply never receives the event. This matches
// the semantics queue.EventBus documents — the bus is a convenience
// for live dashboards and notifications, never a source of truth.
package redisbus
