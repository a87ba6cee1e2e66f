package queue

import "context"

// Admission gates producer-path submission by per-tenant concurrency,
// per spec.md §4.7.
//
// Admission is advisory: it is consulted pre-flight on submission only.
// A race between a capacity check and a concurrent submission or lease
// acquisition can briefly over-subscribe a tenant; this is accepted,
// not corrected, per spec.md §9 Open Question 3.
type Admission interface {

	// CheckTenantConcurrency reports whether tenantID currently holds
	// fewer than max jobs in Leased or Running state.
	CheckTenantConcurrency(ctx context.Context, tenantID string, max int) (bool, error)
}
