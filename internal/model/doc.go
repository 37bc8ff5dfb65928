// Package model defines shared data types used across spotfeed.
//
// Conventions:
//   - Symbols: uppercase ticker strings ("GOLD", "SILVER")
//   - Raw spot prices: USD per troy ounce, float64 as received from the feed
//   - Retail prices: AED, decimal.Decimal (exact arithmetic)
//   - Admin-entered commodity fields: Numeric (permissive string-or-number,
//     unparseable values count as zero)
package model
