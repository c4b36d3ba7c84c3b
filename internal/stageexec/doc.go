// Package stageexec runs one pipeline step against one entity.
//
// Every step shares a three-outcome contract. Success advances the entity and
// clears its error. Failure rolls the entity back to the state the step
// started from and records a diagnostic as the entity's last error, leaving
// it eligible for retry. A precondition failure skips the step without
// writing anything. The processing state written before the external call is
// a compare-and-swap on the persisted state, so it doubles as the lease that
// keeps two invocations off the same entity.
package stageexec
