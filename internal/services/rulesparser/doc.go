// Package rulesparser is the client for the external rulebook extraction
// service. It posts {entityId, documentReference} and reads back
// {success, error}.
package rulesparser
