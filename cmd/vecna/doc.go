// Package main implements the vecna CLI.
//
// Every command opens the catalog database directly; there is no daemon. The
// `run` command starts the polling worker in the foreground and holds a lock
// file so only one worker advances entities at a time. The remaining commands
// inspect state (status, show, suggestions) or perform the manual actions a
// reviewer owns (attach-rulebook, approve) and one-off advances.
package main
