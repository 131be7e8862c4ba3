package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"swipebraille/internal/logging"
	"swipebraille/internal/tracing"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID tags each request with the caller's ID or a fresh one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = logging.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// traceRequest runs each request in a server span, continuing the caller's
// trace when a valid traceparent header arrives, and returns the span's
// own traceparent.
func (s *Server) traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tracer.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		route := routeOf(r)
		ctx := tracing.ContextWithRemoteParent(r.Context(), tracing.ExtractTraceContext(r.Header.Get))
		ctx, span := s.tracer.Start(ctx, r.Method+" "+route,
			tracing.WithSpanKind(tracing.SpanKindServer),
			tracing.WithAttributes(
				tracing.Attr("http.method", r.Method),
				tracing.Attr("http.route", route),
				tracing.Attr("request_id", logging.RequestIDFromContext(ctx)),
			),
		)
		defer span.End()
		tracing.InjectTraceContext(ctx, w.Header().Set)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		span.SetAttributes(tracing.Attr("http.status_code", rec.status))
		if rec.status >= 500 {
			span.SetStatus(tracing.StatusError, fmt.Sprintf("status %d", rec.status))
		} else {
			span.SetStatus(tracing.StatusOK, "")
		}
	})
}

// routeOf returns the matched route template, or the raw path.
func routeOf(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := routeOf(r)
		s.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)

		log := s.logger.WithContext(r.Context())
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", elapsed,
		}
		if span := tracing.SpanFromContext(r.Context()); span != nil && span.Context().IsValid() {
			attrs = append(attrs, "trace_id", span.Context().TraceID.String())
		}
		if rec.status >= 500 {
			log.Error("request failed", attrs...)
			return
		}
		log.Debug("request", attrs...)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}
