// Package preflight provides readiness checks for the directories, catalog
// database, and external services Vecna depends on.
//
// These checks run in two contexts:
//   - The worker (workflow.Manager.Run) calls RunAll once at startup and logs
//     every failed check without stopping.
//   - The CLI "vecna doctor" command renders every result.
package preflight
