// Package taxonomy implements the suggestion auto-acceptance step.
//
// Pending suggestions at or above the confidence threshold are partitioned by
// kind, filtered against the values the entity already carries, inserted,
// and marked accepted. Suggestions below the threshold stay pending for
// manual review or expiry.
package taxonomy
