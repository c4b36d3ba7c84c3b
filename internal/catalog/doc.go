// Package catalog persists pipeline entities in SQLite and exposes the
// collaborator operations the executors and workflow need.
//
// The Store owns entity rows (state, data flags, last error, lease expiry),
// families and their cached context, imported enrichment, taxonomy values,
// entity associations, suggestions, and generated content. State writes are
// compare-and-swap on the current state so the persisted value acts as the
// per-entity lease; a write against a stale state fails with
// services.ErrStateConflict.
//
// Schema changes bump schemaVersion in schema.go; operators delete the
// database to adopt the new schema.
package catalog
