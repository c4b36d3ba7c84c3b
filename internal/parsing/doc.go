// Package parsing implements the rulebook parse step. It writes parsing
// before calling the extraction service and rolls back to rulebook_ready
// with the failure recorded when the call does not succeed.
package parsing
