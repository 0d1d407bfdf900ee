package observability

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Audit emits a structured security event for the request. Callers must
// never pass secrets (passwords, codes, tokens) as attributes.
func Audit(r *http.Request, event string, attrs ...any) {
	ctx := r.Context()
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(ctx),
	}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}
