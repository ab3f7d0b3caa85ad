// Package models defines the data model shared by the cache synchronization layer.
//
// The central types are [JobRecord], the client-side view of a backend
// background job, and [Target], the compound key used to mark read-cache
// entries stale. [JobUpdate] carries partial state from push payloads or
// re-fetch responses; absent fields are nil and leave the prior record
// value untouched when merged.
package models
