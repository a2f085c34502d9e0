package server

import (
	"context"
	"net/http"

	"goa.design/clue/log"
)

// Routes registers the API endpoints on a new mux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.Health)
	mux.HandleFunc("GET /admin/secret", a.AdminSecret)

	for _, s := range a.Stores {
		c := &collection{store: s, schema: s.Schema(), validator: a.Validator}
		base := "/" + c.schema.Name
		item := base + "/{" + c.schema.IDParam + "}"

		mux.HandleFunc("GET "+base, c.list)
		mux.HandleFunc("POST "+base, c.create)
		mux.HandleFunc("GET "+item, c.get)
		mux.HandleFunc("PUT "+item, c.update)
		mux.HandleFunc("DELETE "+item, c.delete)
	}
	return mux
}

// Handler returns the routes wrapped in the middleware stack, outermost
// first: request logging, request id, timing, CORS, admin key, rate limit.
func (a *API) Handler(logCtx context.Context) http.Handler {
	var h http.Handler = a.Routes()
	h = RateLimit(a.Limiter, h)
	h = RequireAPIKey(a.APIKey, h)
	h = CORS(h)
	h = ProcessTime(h)
	h = RequestID(h)
	h = log.HTTP(logCtx)(h)
	return h
}
