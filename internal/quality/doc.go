// Package quality checks generated content for completeness before an
// entity may be published. It reads persisted content only; it never calls
// an external service.
package quality
