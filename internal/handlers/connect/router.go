package connect

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/relaypay/gateway-bridge/pkg/observability"
	"go.uber.org/zap"
)

// NewRouter mounts the bridge's three operations. The callback route
// matches both URLs the gateway is configured with at purchase
// creation; success and failure notifications land on the same
// handler and are told apart by the webhook status.
func NewRouter(h *Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(observability.HTTPMiddleware)

	r.Post("/pay", h.Payin)
	r.Post("/status", h.Status)
	r.Post("/gateway/callback", h.GatewayCallback)

	return r
}

// requestLogger logs one structured line per request after it is
// served, keyed by the chi request id.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
