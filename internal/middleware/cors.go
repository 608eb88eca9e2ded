package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

const defaultDevOrigin = "http://localhost:3000"

// CORS builds the browser policy for the API. Origins are compared by
// scheme and host, so trailing slashes and case differences in the
// configured list are dropped. A "*" entry disables credentials, which
// browsers reject alongside a wildcard origin.
func CORS(allowedOrigins []string) cors.Options {
	origins := normalizeOrigins(allowedOrigins)
	if len(origins) == 0 {
		origins = []string{defaultDevOrigin}
	}
	wildcard := slices.Contains(origins, "*")

	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		// Retry-After accompanies rate-limited 429 responses.
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "" || slices.Contains(out, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}
