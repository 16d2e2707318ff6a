package provision

import (
	"context"

	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/site"
)

// Suspend projects an account suspension onto every site of user, then
// mirrors it to WP Toolkit.  Remote failures are Warnings.
func (o *Orchestrator) Suspend(ctx context.Context, user string) (*Result, error) {
	return o.lifecycle(ctx, "suspend", user, site.StatusSuspended, StepRemoteSuspend, o.wp.SuspendInstallation)
}

// Unsuspend reverses Suspend.
func (o *Orchestrator) Unsuspend(ctx context.Context, user string) (*Result, error) {
	return o.lifecycle(ctx, "unsuspend", user, site.StatusActive, StepRemoteUnsuspend, o.wp.UnsuspendInstallation)
}

// Terminate marks every site of user inactive.  Rows are kept for audit
// and nothing is sent remotely because the account is being removed.
func (o *Orchestrator) Terminate(ctx context.Context, user string) (*Result, error) {
	return o.lifecycle(ctx, "terminate", user, site.StatusInactive, "", nil)
}

type mirrorFunc func(ctx context.Context, user, installID string) error

func (o *Orchestrator) lifecycle(ctx context.Context, op, user string, status site.Status,
	step string, mirror mirrorFunc) (*Result, error) {

	r := o.begin(op, hosting.Account{Username: user})
	if user == "" {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		return r.res, invalid("username", "required")
	}

	n, err := o.sites.SetStatusByUser(ctx, user, status)
	if err != nil {
		return r.res, r.fail(StageLifecycle, err)
	}
	r.res.Affected = n
	r.log.Infow("site status projected", "status", status, "rows", n)

	if mirror != nil {
		rows, err := o.sites.ByCpanelUser(ctx, user)
		if err != nil {
			r.warn(step, user, err)
		}
		for _, s := range rows {
			if s.InstallationID == "" {
				continue
			}
			if err := mirror(ctx, user, s.InstallationID); err != nil {
				r.warn(step, s.Domain+s.Path, err)
			}
		}
	}

	r.res.State = StateApplied
	r.log.Infow("lifecycle finished", "warnings", len(r.res.Warnings))
	return r.res, nil
}
