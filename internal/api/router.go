package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/clv/backend/internal/api/handlers"
	"github.com/wonny/clv/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// A nil limiter disables rate limiting on /api.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(clvHandler *handlers.CLVHandler, limiter Limiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// /api 라우트는 루트에 전체 경로로 등록 (subrouter는 method 불일치를 404로 응답)
	limited := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return rateLimitMiddleware(limiter)(h)
	}

	// CLV endpoints
	r.Handle("/api/clv/report", limited(clvHandler.GetReport)).Methods("GET")
	r.Handle("/api/clv/segments", limited(clvHandler.GetSegments)).Methods("GET")
	r.Handle("/api/clv/customers/{id}", limited(clvHandler.GetCustomer)).Methods("GET")
	r.Handle("/api/clv/refresh", limited(clvHandler.Refresh)).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "clv-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
