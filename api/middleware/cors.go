package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/go-chi/cors"
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowedHeaders = []string{"Accept", "Content-Type", "X-Request-Id", "X-Requested-With"}
	corsExposedHeaders = []string{"X-Request-Id"}
)

// CORSPolicy decides which storefront origins may call the API.
// An empty origin list mirrors any origin.
type CORSPolicy struct {
	origins map[string]struct{}
	any     bool
	maxAge  time.Duration
}

func NewCORSPolicy(origins []string, maxAge time.Duration) CORSPolicy {
	policy := CORSPolicy{origins: map[string]struct{}{}, maxAge: maxAge}
	for _, origin := range origins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		switch trimmed {
		case "":
			continue
		case "*":
			policy.any = true
		default:
			policy.origins[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	if len(policy.origins) == 0 {
		policy.any = true
	}
	return policy
}

// Allows reports whether origin may be mirrored back.
func (p CORSPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	_, ok := p.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}

func (p CORSPolicy) maxAgeSeconds() int {
	return int(p.maxAge / time.Second)
}

// CORS applies the policy to actual requests and preflights. Preflights pass
// through so routes can answer them with Preflight.
func CORS(policy CORSPolicy) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return policy.Allows(origin)
		},
		AllowedMethods:     corsAllowedMethods,
		AllowedHeaders:     corsAllowedHeaders,
		ExposedHeaders:     corsExposedHeaders,
		AllowCredentials:   false,
		MaxAge:             policy.maxAgeSeconds(),
		OptionsPassthrough: true,
	}).Handler
}

// Preflight answers OPTIONS with 204, mirroring the request Origin when the policy allows it.
func Preflight(policy CORSPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		if policy.Allows(origin) && h.Get("Access-Control-Allow-Origin") == "" {
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", strings.Join(corsAllowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
			if seconds := policy.maxAgeSeconds(); seconds > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(seconds))
			}
		}
		responses.WriteNoContent(w)
	}
}
