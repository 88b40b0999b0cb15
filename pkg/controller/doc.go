// Package controller contains HTTP middleware and helper handlers for the
// operational server.
//
//   - WithLogger: attaches a request-scoped logger and request ID to the
//     context and writes a structured access log line per request.
//   - PprofMux: returns a ServeMux exposing net/http/pprof handlers.
package controller
