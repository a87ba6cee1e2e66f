// Package job defines the stateful representation of a unit of work
// managed by the queue.
//
// A Job is a durable row: tenant ownership, idempotency key, payload,
// scheduling metadata and lifecycle state all live on the same record.
// Job values returned by a store are snapshots; mutating them in memory
// does not change underlying storage. Transitions happen only through
// the store's conditional updates (see the root queue package).
//
// Job is not intended to be constructed manually by user code outside
// of a store implementation; producers build a submission.Request and
// hand it to a Submitter instead.
package job
