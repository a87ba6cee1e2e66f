// Package localbus implements queue.EventBus entirely in-process, for
// single-binary deployments and tests that don't want a Redis
// dependency. It fans out published events to every current subscriber
// via a buffered channel per subscriber. Like internal.WorkerPool it
// uses a bounded buffered channel, but its send never blocks: an event
// for a subscriber whose channel is full is dropped, where
// WorkerPool.Push waits for room.
package localbus
