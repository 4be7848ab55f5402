// Package domain contains the core entities of the review engine:
// card identity, per-card memory state, ratings, and review log entries.
//
// Domain types carry their own validation and wire encoding but perform
// no I/O. Persistence lives in the store packages and behavior in the
// srs and service packages.
package domain
