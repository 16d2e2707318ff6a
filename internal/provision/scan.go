package provision

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/wpmanager/internal/config"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/metrics"
)

// ScanAndRegister registers every installation of acct the registry does
// not know yet.  Known rows are never modified, so repeated scans of an
// unchanged account register nothing.  Concurrent scans of the same
// account by the same client share one pass.  An account the registry
// already assigns to another client is refused as not found.
func (o *Orchestrator) ScanAndRegister(ctx context.Context, acct hosting.Account) (*ScanResult, error) {
	if acct.Username == "" {
		return &ScanResult{}, invalid("username", "required")
	}
	if err := o.claim(ctx, acct); err != nil {
		return &ScanResult{User: acct.Username}, scoped(err)
	}
	key := fmt.Sprintf("%s/%d", acct.Username, acct.ClientID)
	v, err, _ := o.scans.Do(key, func() (any, error) {
		return o.scan(ctx, acct)
	})
	res := *v.(*ScanResult)
	return &res, err
}

func (o *Orchestrator) scan(ctx context.Context, acct hosting.Account) (*ScanResult, error) {
	log := o.log.With("operation", "scan", "user", acct.Username)
	res := &ScanResult{User: acct.Username}

	list, err := o.finder.ListInstallations(ctx, acct.Username)
	if err != nil {
		log.Errorw("scan could not list installations", "err", err)
		return res, &StageError{Stage: StageDiscovery, Err: err}
	}
	res.TotalFound = len(list)

	for _, inst := range list {
		created, err := o.sites.UpsertFromDiscovery(ctx, inst, acct.Username, acct.ClientID)
		if err != nil {
			log.Errorw("scan could not register installation",
				"domain", inst.Domain, "path", inst.Path, "err", err)
			return res, &StageError{Stage: StageRegistry, Err: err}
		}
		if created {
			res.Registered++
			log.Infow("registered installation", "domain", inst.Domain, "path", inst.Path,
				"installation_id", inst.InstallationID)
		}
	}
	metrics.ScanRegisteredTotal.Add(float64(res.Registered))
	log.Infow("scan finished", "total_found", res.TotalFound, "registered", res.Registered)
	return res, nil
}

// Reconcile re-scans every account the registry knows with at most
// concurrency scans in flight.  Per-account failures are reported in the
// summary and do not stop the others.
func (o *Orchestrator) Reconcile(ctx context.Context, concurrency int) ([]AccountScan, error) {
	if concurrency < 1 {
		concurrency = config.DefaultScanConcurrent
	}
	accts, err := o.sites.Accounts(ctx)
	if err != nil {
		o.log.Errorw("reconcile could not list accounts", "err", err)
		return nil, fmt.Errorf("provision: list accounts: %w", err)
	}

	out := make([]AccountScan, len(accts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, a := range accts {
		g.Go(func() error {
			res, err := o.ScanAndRegister(gctx, a)
			out[i].ScanResult = *res
			out[i].User = a.Username
			if err != nil {
				out[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, s := range out {
		if s.Error != "" {
			failed++
		}
	}
	o.log.Infow("reconcile finished", "accounts", len(out), "failed", failed)
	return out, ctx.Err()
}
