// Package events implements the reducer table that keeps client state
// consistent with server-originated push notifications.
//
// Each push event is decoded into an [Event] (kind, action, raw payload)
// and routed through [Context.Reduce], an exhaustive switch over the
// closed [Kind] enum. Reducers mutate the job record cache, mark read-cache
// targets stale, or flip the process-wide connectivity flags; they never
// return errors. The server may inline full job state in a `jobs` payload
// or send a bare id; the reducer re-fetches bare ids asynchronously and
// merges whichever answer lands, accepting field-level last-write-wins.
package events
