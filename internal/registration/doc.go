// Package registration holds the invariant-preserving rules of event registration:
// effective status resolution, the capacity gate, interval overlap, the registration
// state machine, denial reasons, and the in-process keyed lock table used by stores
// without row-level locking.
package registration
