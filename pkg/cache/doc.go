// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// It backs the in-process variant of the tenant-scoped cache:
//
//	c := cache.NewLRUCache[string, []byte](10_000)
//	c.PutWithTTL("tenant:T-1:product:42", payload, time.Minute)
//	v, ok := c.Get("tenant:T-1:product:42")
//
// RemoveFunc drops entries by key predicate, for example every key of one
// tenant when its data is purged.
package cache
