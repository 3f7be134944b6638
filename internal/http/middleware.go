package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type corsPolicy struct {
	allowedOrigins map[string]struct{} // nil allows any origin
	allowMethods   string
	allowHeaders   string
	maxAge         int
}

func (s *Server) withCORS(policy corsPolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		originRaw := r.Header.Get("Origin")
		if originRaw != "" {
			origin := normalizeOrigin(originRaw)
			if origin == "" {
				http.Error(w, "forbidden origin", http.StatusForbidden)
				return
			}

			if policy.allowedOrigins != nil {
				if _, ok := policy.allowedOrigins[origin]; !ok {
					http.Error(w, "forbidden origin", http.StatusForbidden)
					return
				}
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			if policy.allowMethods != "" {
				w.Header().Set("Access-Control-Allow-Methods", policy.allowMethods)
			}

			if policy.allowHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", policy.allowHeaders)
			} else if reqHdrs := r.Header.Get("Access-Control-Request-Headers"); reqHdrs != "" {
				w.Header().Set("Access-Control-Allow-Headers", reqHdrs)
			}

			if policy.maxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", policy.maxAge))
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func (s *Server) withAPIGuards(methods string, next http.HandlerFunc) http.HandlerFunc {
	return s.withCORS(corsPolicy{
		allowedOrigins: s.allowedOrigins,
		allowMethods:   methods,
		maxAge:         CORSMaxAgeSeconds,
	}, next)
}

// withRateLimit spends one token from the caller's bucket per request.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		key := clientIP(r)
		limit, remaining, reset, ok, err := s.limiter.Take(r.Context(), key)
		if err != nil {
			log.Error("rate limiter failed", "key", key, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{JSONKeyError: "rate limiter unavailable"})
			return
		}

		resetAt := time.Unix(0, int64(reset)).UTC()
		w.Header().Set("X-RateLimit-Limit", strconv.FormatUint(limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatUint(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", resetAt.Format(http.TimeFormat))

		if !ok {
			rateLimited.Add(r.Context(), 1, metric.WithAttributes(attribute.String("path", r.URL.Path)))
			log.Warn("rate limited", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{JSONKeyError: HTTPErrorRateLimitedText})
			return
		}

		next(w, r)
	}
}

// requestLoggerMiddleware logs every request once it completes and records
// its metrics under the matched route template.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		recordRequest(r.Context(), r.Method, route, rw.statusCode, elapsed)

		switch {
		case rw.statusCode >= 500:
			log.Error("http request", "request_id", reqID, "method", r.Method, "path", r.URL.Path,
				"status", rw.statusCode, "duration_ms", elapsed.Milliseconds())
		case rw.statusCode >= 400:
			log.Warn("http request", "request_id", reqID, "method", r.Method, "path", r.URL.Path,
				"status", rw.statusCode, "duration_ms", elapsed.Milliseconds())
		default:
			log.Info("http request", "request_id", reqID, "method", r.Method, "path", r.URL.Path,
				"status", rw.statusCode, "duration_ms", elapsed.Milliseconds())
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
