package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"staybook/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

type routeKey struct{}

// routeLabel is filled by the matched handler so metrics use the pattern, not the raw path.
type routeLabel struct {
	pattern string
}

func withRouteLabel(ctx context.Context, pattern string) {
	if label, ok := ctx.Value(routeKey{}).(*routeLabel); ok {
		label.pattern = pattern
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogging tags each request with an id, a child logger and metrics.
func requestLogging(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		l := logger.With().Str("request_id", requestID).Logger()
		label := &routeLabel{pattern: "unmatched"}
		ctx := context.WithValue(l.WithContext(r.Context()), routeKey{}, label)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))
		dur := time.Since(start)

		metrics.ObserveHTTP(label.pattern, recorder.status, dur)

		event := l.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = l.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", label.pattern).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func recoverer(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Recovered from panic in http handler")
				writeMessage(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
