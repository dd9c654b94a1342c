package gateway

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware wraps next with the cross-origin policy used by the draft
// HTTP servers. No origins means any origin.
func CORSMiddleware(next http.Handler, origins ...string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Retry-After", "Draft-Error-Kind"},
		MaxAge:         86400,
	})
	return c.Handler(next)
}
