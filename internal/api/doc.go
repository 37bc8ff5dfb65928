// Package api implements the REST client for the configuration
// collaborators: spot-rate configuration (commodities + spreads), feed
// endpoint discovery, news items, and the screen entitlement check.
//
// None of these calls are on the quote path; every failure here degrades to
// "no configuration yet" rather than stopping the process.
package api
