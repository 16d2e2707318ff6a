// internal/hooks/router.go
//
// HTTP surface for the billing platform.
//
// Routes
// ------
//
//	GET  /healthz                                       liveness, no auth
//	GET  /metrics                                       Prometheus, no auth
//
//	POST /hooks/account/created                         provision account (+ WordPress)
//	POST /hooks/account/{suspended|unsuspended|terminated}
//
//	GET  /clients/{clientID}/sites
//	GET  /clients/{clientID}/sites/{siteID}
//	POST /clients/{clientID}/sites/{siteID}/refresh
//	POST /clients/{clientID}/sites/{siteID}/backup
//	GET  /clients/{clientID}/sites/{siteID}/backups
//	POST /clients/{clientID}/sites/{siteID}/update
//	POST /clients/{clientID}/sites/{siteID}/login
//	POST /clients/{clientID}/sites/{siteID}/credentials
//	POST /clients/{clientID}/accounts/{user}/scan
//	POST /clients/{clientID}/accounts/{user}/install
//	GET  /clients/{clientID}/accounts/{user}/usage
//
//	POST /admin/reconcile
//
// Everything except /healthz and /metrics requires the shared bearer token.
// Client routes put the client id on the context (auth.WithClient) and
// every site lookup is scoped to it.  Account routes refuse a cPanel user
// the registry assigns to another client.
package hooks

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/wpmanager/internal/auth"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/logger"
	"github.com/yanizio/wpmanager/internal/middleware"
	"github.com/yanizio/wpmanager/internal/provision"
	"github.com/yanizio/wpmanager/internal/site"
	"github.com/yanizio/wpmanager/internal/usage"
)

// Service is the orchestrator surface the adapter drives.  *provision.Orchestrator
// satisfies it.
type Service interface {
	CreateAccountAndSite(ctx context.Context, spec provision.AccountSpec, wp provision.WPOptions) (*provision.Result, error)
	InstallSite(ctx context.Context, acct hosting.Account, wp provision.WPOptions) (*provision.Result, error)
	ScanAndRegister(ctx context.Context, acct hosting.Account) (*provision.ScanResult, error)
	Reconcile(ctx context.Context, concurrency int) ([]provision.AccountScan, error)

	Suspend(ctx context.Context, user string) (*provision.Result, error)
	Unsuspend(ctx context.Context, user string) (*provision.Result, error)
	Terminate(ctx context.Context, user string) (*provision.Result, error)

	Sites(ctx context.Context, clientID int64) ([]site.Site, error)
	Site(ctx context.Context, siteID, clientID int64) (*site.Site, error)
	Refresh(ctx context.Context, siteID, clientID int64) (*site.Site, error)
	Backup(ctx context.Context, siteID, clientID int64) (*site.Backup, error)
	Backups(ctx context.Context, siteID, clientID int64) ([]site.Backup, error)
	UpdateWordPress(ctx context.Context, siteID, clientID int64) (*site.Site, error)
	LoginURL(ctx context.Context, siteID, clientID int64) (string, error)
	Credentials(ctx context.Context, siteID, clientID int64) (*site.Credentials, error)
	Usage(ctx context.Context, user string, clientID int64) (usage.Snapshot, error)
}

var _ Service = (*provision.Orchestrator)(nil)

// Options tunes the router.
type Options struct {
	Token           string // shared bearer token
	ScanConcurrency int    // fan-out for /admin/reconcile
}

// Handler holds the dependencies of every route.
type Handler struct {
	svc  Service
	opts Options
	log  *zap.SugaredLogger
}

// NewRouter assembles the chi router.
func NewRouter(svc Service, opts Options, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	if opts.ScanConcurrency < 1 {
		opts.ScanConcurrency = 1
	}
	h := &Handler{svc: svc, opts: opts, log: log.Named("hooks")}

	r := chi.NewRouter()
	r.Use(middleware.AccessLog(h.log))
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(opts.Token, h.log))

		r.Route("/hooks/account", func(r chi.Router) {
			r.Post("/created", h.accountCreated)
			r.Post("/suspended", h.lifecycle(h.svc.Suspend))
			r.Post("/unsuspended", h.lifecycle(h.svc.Unsuspend))
			r.Post("/terminated", h.lifecycle(h.svc.Terminate))
		})

		r.Route("/clients/{clientID}", func(r chi.Router) {
			r.Use(withClient)

			r.Get("/sites", h.listSites)
			r.Route("/sites/{siteID}", func(r chi.Router) {
				r.Get("/", h.siteAction(h.svc.Site))
				r.Post("/refresh", h.siteAction(h.svc.Refresh))
				r.Post("/update", h.siteAction(h.svc.UpdateWordPress))
				r.Post("/backup", h.createBackup)
				r.Get("/backups", h.listBackups)
				r.Post("/login", h.loginURL)
				r.Post("/credentials", h.credentials)
			})

			r.Route("/accounts/{user}", func(r chi.Router) {
				r.Post("/scan", h.scan)
				r.Post("/install", h.install)
				r.Get("/usage", h.usage)
			})
		})

		r.Post("/admin/reconcile", h.reconcile)
	})

	return r
}

// withClient parses {clientID} and stores it on the context.
func withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "client id must be a positive integer")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClient(r.Context(), id)))
	})
}
