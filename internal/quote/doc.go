// Package quote implements the quote store and bid-direction detection.
//
// The store maintains symbol → latest Quote with field-wise last-write-wins
// merge semantics. Exactly one writer (the feed) mutates it; every other
// component reads copied snapshots, so readers can never observe a partial
// merge.
package quote
