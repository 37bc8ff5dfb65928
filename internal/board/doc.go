// Package board assembles the values the TV screen shows: the gold/silver
// spot panels and the commodity price rows.
//
// Build is pure: it reads a quote snapshot and a catalog snapshot and
// produces a Board. Boards are recomputed on every consumption cycle and
// never cached, so a new quote or a catalog refresh is reflected on the
// next build with no invalidation logic.
package board
