// Package catalog maintains the commodity configuration: the commodity
// list, the per-metal spread values, and the screen entitlement flag.
//
// Configuration is fetched from the admin API at startup and re-fetched on
// an interval. Each fetch produces a fresh immutable Snapshot swapped in
// atomically; consumers holding an older snapshot keep a consistent view
// and are never patched field by field. A missing or failing collaborator
// yields an empty snapshot, not an error: pricing simply has nothing to
// compute yet.
package catalog
