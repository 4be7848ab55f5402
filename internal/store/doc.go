// Package store defines the persistence interfaces the review engine
// depends on, together with the sentinel errors all implementations share.
//
// Two backends ship with the engine: notefile (card state embedded as
// metadata in text files, review log as an NDJSON file) and postgres.
package store
