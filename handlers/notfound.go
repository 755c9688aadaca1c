package handlers

import (
	"fmt"
	"net/http"
)

// NotFound replies 404 with a usage hint pointing at the relay's own port.
func NotFound(port int) http.HandlerFunc {
	usage := fmt.Sprintf("404 Not Found\n\nUsage: http://localhost:%d/tts?appkey=xxx&token=xxx&text=xxx...", port)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(usage))
	}
}
