// Package state implements the reference-counted core of the visibility
// engine: the enablement tracker that decides when features show and hide,
// and the selection tracker for user-driven selected and active sets.
//
// # Why Reference Counts
//
// Several independent controls can claim the same feature: a system toggle,
// a path-type toggle, and a taxon toggle may each assert "keep this feature
// visible". A boolean flag loses the distinction the moment two claimants
// overlap; the feature would vanish as soon as either released it. The
// tracker instead keeps a count of outstanding claims per feature id. This
// is the classic shared-resource reference-count pattern applied to
// visibility instead of memory.
//
// # The Boundary Rule
//
// The renderer is touched only when a count crosses zero:
//
//   - 0 to 1: the first claimant shows the feature (hidden flag cleared)
//   - 1 to 0: the last claimant hides it (hidden flag set)
//
// Transitions like 1 to 2 or 2 to 1 update the count and nothing else, so a
// feature claimed by two controls survives one of them toggling off.
// Decrements below zero are unbalanced callers: the count clamps at zero,
// the inconsistency is logged, and operation continues.
//
// Forced calls bypass the boundary rule: they pin the count to exactly one
// or zero and re-apply the renderer state unconditionally. Map setup uses
// force so the renderer provably matches logical state even when a default
// already equals the request.
//
// # Containment Propagation
//
// [Enablement.EnableFeatureWithChildren] walks a feature's containment
// subtree depth-first, applying the same counted operation to every
// descendant. Containment is a tree by construction; a visited set guards
// against accidental cycles in annotation data.
//
// # Selection and Activation
//
// [Selection] runs a parallel reference count for selected features, with a
// [Guard] consulted before any feature joins the set: hidden features
// cannot be selected or activated. The first selection into an empty set
// can switch the renderer's global dimmed paint mode on; emptying the set
// switches it off. Active (hover) features are plain membership, cleared
// wholesale on every pointer move.
//
// # Concurrency
//
// Neither tracker is safe for concurrent use. All mutations must arrive
// through a single writer; the flatmap package provides that by serializing
// its public operations behind one mutex.
package state
