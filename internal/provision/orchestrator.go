// internal/provision/orchestrator.go
//
// Provisioning Orchestrator.
//
/*
Context
--------
The orchestrator sequences the non-atomic, multi-step operations against
WHM, WP Toolkit, and the Site Registry.  There are no cross-system
transactions.  Consistency is eventual and re-established by scans.

Failure policy
--------------
  • Input is validated before any remote call.
  • A timeout-class failure of account creation triggers one existence
    check after RecoveryDelay.  No other step recovers from timeouts.
  • SSL, backup schedule, FTP, and remote suspend mirroring are best-effort.
    Their failures become Warnings on the Result.
  • A registry failure after remote creation is a *PartialSuccessError.

Every public entry point returns a non-nil *Result, logs failures with the
account and domain, and tags log lines with the request's correlation id.
*/
package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/wpmanager/internal/config"
	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/logger"
	"github.com/yanizio/wpmanager/internal/metrics"
	"github.com/yanizio/wpmanager/internal/site"
)

// AccountAPI is the account-management slice of the gateway.
type AccountAPI interface {
	CreateAccount(ctx context.Context, r gateway.AccountRequest) error
	AccountExists(ctx context.Context, user, domain string) (gateway.Existence, error)
	AccountSummary(ctx context.Context, user string) (*gateway.AccountSummary, error)
	CreateFTPAccount(ctx context.Context, r gateway.FTPRequest) error
}

// WordPressAPI is the WP Toolkit slice of the gateway.
type WordPressAPI interface {
	InstallWordPress(ctx context.Context, r gateway.InstallRequest) (*gateway.InstallResult, error)
	EnableSSL(ctx context.Context, user, installID string) error
	ConfigureBackups(ctx context.Context, user, installID, schedule string) error
	CreateBackup(ctx context.Context, user, installID string) (string, error)
	UpdateWordPress(ctx context.Context, user, installID string) error
	SuspendInstallation(ctx context.Context, user, installID string) error
	UnsuspendInstallation(ctx context.Context, user, installID string) error
	LoginURL(ctx context.Context, user, installID string) (string, error)
}

// Finder is the discovery engine.
type Finder interface {
	ListInstallations(ctx context.Context, user string) ([]hosting.Installation, error)
	FindByDomain(ctx context.Context, user, domain, path string) (hosting.Installation, error)
}

// Registry is the Site Registry.
type Registry interface {
	Create(ctx context.Context, rec *site.Site, creds site.Credentials) (int64, error)
	UpsertFromDiscovery(ctx context.Context, inst hosting.Installation, user string, clientID int64) (bool, error)
	OwnerOf(ctx context.Context, user string) (int64, bool, error)
	ByIDForClient(ctx context.Context, id, clientID int64) (*site.Site, error)
	ByClient(ctx context.Context, clientID int64) ([]site.Site, error)
	ByCpanelUser(ctx context.Context, user string) ([]site.Site, error)
	SetStatusByUser(ctx context.Context, user string, status site.Status) (int64, error)
	UpdateRemoteFields(ctx context.Context, id int64, inst hosting.Installation) error
	AddBackup(ctx context.Context, siteID int64, name, status string) (*site.Backup, error)
	Backups(ctx context.Context, siteID int64) ([]site.Backup, error)
	Accounts(ctx context.Context) ([]hosting.Account, error)
	Reveal(ctx context.Context, sealed string) (string, error)
}

// Orchestrator is safe for concurrent use across different accounts.
type Orchestrator struct {
	accounts AccountAPI
	wp       WordPressAPI
	finder   Finder
	sites    Registry
	cfg      config.Provision
	log      *zap.SugaredLogger
	sleep    func(context.Context, time.Duration) error
	scans    singleflight.Group
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the recovery wait, mainly for tests.
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = f }
}

// New wires the orchestrator.  *gateway.Client satisfies both AccountAPI
// and WordPressAPI.
func New(accounts AccountAPI, wp WordPressAPI, finder Finder, sites Registry,
	cfg config.Provision, log *zap.SugaredLogger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.RecoveryDelay <= 0 {
		cfg.RecoveryDelay = config.DefaultRecoveryDelay
	}
	o := &Orchestrator{
		accounts: accounts,
		wp:       wp,
		finder:   finder,
		sites:    sites,
		cfg:      cfg,
		log:      log.Named("provision"),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// run is the per-request state.  It keeps the Result and a correlated
// logger together so every step logs the same id.
type run struct {
	res *Result
	log *zap.SugaredLogger
}

func (o *Orchestrator) begin(op string, acct hosting.Account) *run {
	id := uuid.NewString()
	return &run{
		res: &Result{ID: id, State: StateRequested, Account: acct},
		log: o.log.With("provision_id", id, "operation", op, "user", acct.Username, "domain", acct.Domain),
	}
}

func (r *run) to(s State) {
	r.res.State = s
	r.log.Debugw("state", "state", s)
}

// fail records a fatal stage failure and returns the *StageError.
func (r *run) fail(stage Stage, err error) error {
	r.res.FailedStage = stage
	r.res.State = StateFailed
	r.log.Errorw("provisioning failed", "stage", stage, "err", err)
	metrics.ProvisionTotal.WithLabelValues(string(StateFailed)).Inc()
	return &StageError{Stage: stage, Err: err}
}

// warn records a best-effort failure without stopping the run.
func (r *run) warn(step, target string, err error) {
	r.res.Warnings = append(r.res.Warnings, Warning{Step: step, Target: target, Message: err.Error(), Err: err})
	r.log.Errorw("best-effort step failed", "step", step, "target", target, "err", err)
	metrics.BestEffortFailuresTotal.WithLabelValues(step).Inc()
}

func (r *run) done() {
	r.log.Infow("provisioning finished", "state", r.res.State, "degraded", r.res.Degraded(),
		"warnings", len(r.res.Warnings), "timeout_recovery", r.res.TimeoutRecovery)
	metrics.ProvisionTotal.WithLabelValues(string(r.res.State)).Inc()
}
