// Package submission defines the transport-level intake shape accepted
// by a Submitter.
//
// Request carries only what a producer provides: tenant identity,
// idempotency key, opaque payload, and the scheduling hints (priority,
// max attempts, delay). It does not carry lifecycle state — that is
// job.Job's concern, assigned once the request is durably recorded.
package submission
