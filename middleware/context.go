package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// OwnerIDKey is the context key for the principal owning stored credentials
	OwnerIDKey contextKey = "owner_id"
)

// RequestIDHeader is echoed on every response
const RequestIDHeader = "X-Request-ID"

// OwnerIDHeader optionally scopes credentials to a principal. Identity is
// established upstream of the gateway; the header is trusted as given.
const OwnerIDHeader = "X-Owner-ID"

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetOwnerID retrieves the owning principal from context
func GetOwnerID(ctx context.Context) *uuid.UUID {
	if val := ctx.Value(OwnerIDKey); val != nil {
		if ownerID, ok := val.(*uuid.UUID); ok {
			return ownerID
		}
	}
	return nil
}

// WithOwnerID adds the owning principal to the context
func WithOwnerID(ctx context.Context, ownerID *uuid.UUID) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// RequestContext copies chi's request ID into the gateway context, echoes it
// as a response header and parses the optional owner header.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := chimw.GetReqID(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = WithRequestID(ctx, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		if raw := r.Header.Get(OwnerIDHeader); raw != "" {
			if ownerID, err := uuid.Parse(raw); err == nil {
				ctx = WithOwnerID(ctx, &ownerID)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request with zap
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
