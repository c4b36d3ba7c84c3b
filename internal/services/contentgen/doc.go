// Package contentgen is the client for the external content generation
// service.
package contentgen
