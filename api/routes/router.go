package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kitchenartsandletters/damaged-books-service/api/controllers"
	webhookcontrollers "github.com/kitchenartsandletters/damaged-books-service/api/controllers/webhooks"
	"github.com/kitchenartsandletters/damaged-books-service/api/middleware"
	"github.com/kitchenartsandletters/damaged-books-service/internal/creationlog"
	"github.com/kitchenartsandletters/damaged-books-service/internal/inventory"
	"github.com/kitchenartsandletters/damaged-books-service/internal/reconcile"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/config"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/metrics"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/shopify"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type stateStore interface {
	List(ctx context.Context, filter inventory.ListFilter) ([]models.DamagedInventory, error)
}

type runner interface {
	Run(ctx context.Context, trigger string) (*reconcile.Result, error)
}

// Params carries everything the router wires together.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pinger
	Redis          pinger
	ShopifyClient  *shopify.Client
	WebhookService webhookcontrollers.ShopifyWebhookService
	Pipeline       *inventory.Service
	Store          stateStore
	ReconcileLoop  runner
	ReconcileRuns  reconcile.RunStore
	CreationLog    creationlog.Writer
	Metrics        *metrics.PipelineMetrics
	Registry       *prometheus.Registry
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	checks := controllers.ReadinessChecks{DB: p.DB, Redis: p.Redis}
	if p.ShopifyClient != nil {
		checks.Shopify = p.ShopifyClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, checks, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks/inventory-levels",
		webhookcontrollers.ShopifyInventoryLevels(p.WebhookService, p.ShopifyClient, p.Metrics, logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin, logg))

		r.Get("/inventory", controllers.AdminListInventory(p.Store, logg))
		r.Post("/reconcile", controllers.AdminRunReconcile(p.ReconcileLoop, logg))
		r.Get("/reconcile/last", controllers.AdminLastReconcile(p.ReconcileRuns, logg))
		r.Post("/products/check", controllers.AdminCheckProduct(p.Pipeline, logg))
		r.Post("/creation-log", controllers.AdminAppendCreationLog(p.CreationLog, logg))

		r.Route("/redirects", func(r chi.Router) {
			r.Get("/", controllers.AdminListRedirects(p.ShopifyClient, logg))
			r.Post("/", controllers.AdminCreateRedirect(p.ShopifyClient, logg))
			r.Delete("/{redirectId}", controllers.AdminDeleteRedirect(p.ShopifyClient, logg))
		})
	})

	return r
}
