package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	bchandler "railalert/internal/broadcast/handler"
	"railalert/internal/platform/middleware"
	subhandler "railalert/internal/subscription/handler"
	"railalert/internal/webhook"
	"railalert/pkg/platform/httputil"
)

// AdminPrefix is where the operator API is mounted.
const AdminPrefix = "/api/whatsapp"

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries the transport settings.
type Config struct {
	AdminKey       string
	RequestTimeout time.Duration
}

// Deps are the handlers and probes composed into the router. Metrics and
// Health are optional.
type Deps struct {
	Subscriptions *subhandler.Handler
	Alerts        *bchandler.Handler
	Webhook       *webhook.Handler
	Metrics       http.Handler
	Health        map[string]HealthCheck
	Logger        *slog.Logger
}

// NewRouter wires every public endpoint. Admin routes sit behind the shared
// key gate; the inbound webhook and probes do not.
func NewRouter(cfg Config, deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	if deps.Webhook != nil {
		deps.Webhook.Register(r)
	}

	r.Route(AdminPrefix, func(admin chi.Router) {
		admin.Use(middleware.RequireAdminKey(cfg.AdminKey, log))
		if deps.Subscriptions != nil {
			deps.Subscriptions.Register(admin)
		}
		if deps.Alerts != nil {
			deps.Alerts.Register(admin)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
