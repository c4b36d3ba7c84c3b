// Package services defines shared utilities consumed by the pipeline step
// executors and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp entity IDs, family IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (precondition vs external vs state conflict) after they
//     have been annotated with stage context.
//
// Use these helpers when wiring new step logic so error handling and
// observability stay uniform across the pipeline.
package services
