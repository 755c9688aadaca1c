package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tts-relay/logging"
)

// NewRouter wires the relay behind preflight handling, CORS and request
// logging. port only feeds the 404 usage text.
func NewRouter(relay *Relay, port int, log *logging.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Preflight)
	r.Use(CORS())

	// Any path starting with /tts is relayed, /tts itself included
	r.Get("/tts", relay.ServeHTTP)
	r.Get("/tts*", relay.ServeHTTP)

	notFound := NotFound(port)
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	return r
}
