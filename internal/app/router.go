package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep-pms/innkeep/internal/audit"
	"github.com/innkeep-pms/innkeep/internal/inventory"
	"github.com/innkeep-pms/innkeep/internal/masterdata"
	"github.com/innkeep-pms/innkeep/internal/menu"
	"github.com/innkeep-pms/innkeep/internal/observability"
	"github.com/innkeep-pms/innkeep/internal/procurement"
	"github.com/innkeep-pms/innkeep/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	MasterDataHandler  *masterdata.Handler
	MenuHandler        *menu.Handler
	AuditHandler       *audit.Handler
	JobsHandler        *jobs.Handler
	Pool               *pgxpool.Pool
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(api)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(api)
		}
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(api)
		}
		if params.MenuHandler != nil {
			params.MenuHandler.MountRoutes(api)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(api)
		}
		if params.JobsHandler != nil {
			params.JobsHandler.MountRoutes(api)
		}
	})

	return r
}
