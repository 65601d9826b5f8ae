package trace

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"finsheet/internal/log"
)

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

// Observer receives one call per completed request.
type Observer interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Middleware assigns request ids, logs request completion and reports
// request metrics. It expects to run as gorilla/mux middleware so the
// matched route template is known.
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
	observer  Observer
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string, observer Observer) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP, observer: observer}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
		if m.observer != nil {
			m.observer.ObserveRequest(routeName(r), r.Method, rw.statusCode, elapsed)
		}
	})
}

// routeName keeps metric label cardinality bounded by using the route
// template instead of the raw path.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Recover turns a panic into a 500 and logs the stack.
func Recover(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.ErrorContext(r.Context(), "Handler panic",
						log.FieldPath, r.URL.Path,
						"panic", p,
						"stack", string(debug.Stack()))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
