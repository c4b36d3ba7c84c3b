// Package workflow decides what happens next for an entity and runs it.
//
// The Manager asks the transition engine for an entity's next state and then
// either persists that state directly (auto-advancing states) or hands the
// entity to the matching step executor (parse, taxonomy, generate). Blocking
// states stop the loop until a human acts through AttachRulebook or Approve.
//
// Families are advanced with the base entity first. Dependents run
// concurrently but wait on a per-family signal before their generate step;
// the signal is released once the base entity has passed the
// generated -> review_pending hook that rebuilds the cached family context.
//
// Reconcile demotes entities whose processing lease expired, and Run is the
// polling worker loop guarded by a lock file.
package workflow
