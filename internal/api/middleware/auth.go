// internal/api/middleware/auth.go
package middleware

import (
	"net"
	"net/http"

	"github.com/avrabe/mcp-loxone/internal/api/response"
	"github.com/avrabe/mcp-loxone/internal/auth"
	"go.uber.org/zap"
)

// AuthRecorder observes every decision, e.g. for metrics.
type AuthRecorder interface {
	RecordAuthDecision(reason string, allowed bool)
}

// Gate returns middleware that applies policy to every request. Allowed
// requests reach next untouched; denied ones get a 401 with a Bearer
// challenge. The submitted credential is never logged.
func Gate(policy *auth.Policy, logger *zap.Logger, recorder AuthRecorder) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := policy.Decide(r.URL.Path, r.Header)

			if recorder != nil {
				recorder.RecordAuthDecision(string(outcome.Reason), outcome.Allowed)
			}

			if !outcome.Allowed {
				logger.Warn("access denied",
					zap.String("remote_addr", clientHost(r)),
					zap.String("reason", string(outcome.Reason)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientHost is the peer address of the connection. Forwarding headers are
// ignored; the server is meant to listen locally.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
