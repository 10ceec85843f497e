// Package correlation assigns every inbound request a correlation id that is
// propagated through the request context, structured logs and audit records.
//
// The id is read from the X-Correlation-ID header (or X-Request-ID for older
// clients) when it is well formed, generated otherwise, and always echoed in
// the response.
package correlation
