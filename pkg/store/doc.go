// Package store provides the durable key/value storage shared by the proxy,
// the control commands and the installer.
//
// A [Backend] stores opaque byte values by namespace and key. Two typed
// views are layered on top of it:
//
//   - [ManifestStore] keeps the dependency manifest under the fixed key
//     "manifest" in the [KeyValNamespace] namespace.
//   - [ContentCache] keeps fetched responses keyed by request identity in
//     the [CacheNamespace] namespace. It is only ever flushed as a whole.
//
// Because the namespaces differ, the manifest can never be evicted by a
// cache flush or overwritten by a cached response.
//
// # Backends
//
//   - file: hash-sharded files under a directory (default for the CLI)
//   - memory: process-local maps, used in tests
//   - redis: github.com/redis/go-redis/v9, keys "namespace:key"
//   - mongo: go.mongodb.org/mongo-driver, one collection per namespace
//
// Use [Open] to pick a backend from [Config].
package store
