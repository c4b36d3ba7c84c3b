// Package notifications alerts reviewers when an entity needs a human.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Events
// cover the blocking states (rulebook missing, review pending), step failures,
// and publication. Workflow code depends only on the Service interface.
package notifications
