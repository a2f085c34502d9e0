// Package server implements the tinydoc HTTP API surface.
//
// Owns:
//   - HTTP routing, handlers, and request/response contracts
//   - Cross-cutting middleware: request ids, X-Process-Time, CORS, the /admin/
//     API-key gate, optional rate limiting
//   - Request-shape validation and mapping of store errors to status codes
//
// Does not own:
//   - Record storage and id assignment (Store implementations, see internal/record)
//   - Persistence backends (see internal/storage)
//
// Invariants:
//   - JSON responses go through writeJSON; errors use {"detail": ...}
//   - Every /admin/ path is checked by RequireAPIKey before routing
//   - Every response carries X-Process-Time
package server
