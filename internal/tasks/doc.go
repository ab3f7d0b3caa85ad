// Package tasks implements the client-local background task dispatcher:
// a group-partitioned FIFO queue of deferred side-effect work.
//
// # Ordering
//
// Tasks within one group run strictly in enqueue order, each awaited to
// completion before the next starts. Groups are independent: a drain cycle
// interleaves groups pass by pass, so unrelated cleanup sequences make
// progress without blocking each other.
//
// # Drain cycle
//
// At most one drain cycle is active at a time. The cycle snapshots the
// current non-empty group names, drains each group to empty, removes the
// group entry, and repeats until a full pass finds zero groups. New
// enqueues arriving mid-drain extend the same cycle rather than starting a
// second one.
//
// # Failure policy
//
// A failing or panicking task is logged and skipped; it never reaches the
// enqueuing caller and never halts the drain. Background cleanup is
// best-effort by contract.
//
// # Shutdown guard
//
// [Dispatcher.Guard] answers whether the process may exit: Block while any
// task is queued or running, Allow once the queue is empty. The watch
// command consults it before tearing down, the way a page's unload hook
// would.
package tasks
