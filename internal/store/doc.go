// Package store keeps an optimistic local view of a user's lists and tasks
// in step with a service.Service.
//
// Every mutation follows the same cycle: check the caller is signed in and
// the entity is idle, snapshot the affected record, apply the change
// locally, call the service with the store lock released, then either
// reconcile with the server's record or restore the snapshot and record an
// *OpError. Callers read the outcome from the returned error or from the
// store's error field; a failed operation never leaves a partial change
// behind.
//
// Task counts per list live in the ListStore. The TaskStore reports every
// change in list membership or completion as Effect values to a CountSink,
// inside the same critical section as the task mutation. NewSession wires
// the two together.
package store
