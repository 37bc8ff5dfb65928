// Package pricing converts raw spot quotes into retail buy/sell prices.
//
// Derive is a pure function: no I/O, no state. The conversion pipeline is
//
//	raw bid/ask (USD/oz) + premium → AED/gram → × unit × purity + charge
//
// Parsing is deliberately permissive: missing or unparseable numeric inputs
// count as zero (unknown weight codes and purities as a factor of one) so a
// half-filled commodity row prices low instead of erroring.
package pricing
