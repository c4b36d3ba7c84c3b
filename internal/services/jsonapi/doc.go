// Package jsonapi is the shared JSON-over-HTTP client behind the parse and
// generate service clients.
//
// PostJSON encodes a request body, attaches the optional bearer key and the
// request id from context, and decodes the response. Requests that fail with
// 408, 429, 5xx, or a network timeout are retried with exponential backoff;
// a Retry-After header overrides the computed delay. Other non-2xx
// responses surface immediately as *StatusError.
package jsonapi
