package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/site"
	"github.com/yanizio/wpmanager/internal/usage"
)

// owned loads a site only when clientID owns it.
func (o *Orchestrator) owned(ctx context.Context, siteID, clientID int64) (*site.Site, error) {
	rec, err := o.sites.ByIDForClient(ctx, siteID, clientID)
	if err != nil {
		return nil, fmt.Errorf("provision: site %d: %w", siteID, err)
	}
	return rec, nil
}

// claim refuses acct when the registry already assigns its hosting account
// to a different client.  Accounts without any row pass; the first client
// to register one owns it.  Lookup failures are returned unwrapped.
func (o *Orchestrator) claim(ctx context.Context, acct hosting.Account) error {
	owner, found, err := o.sites.OwnerOf(ctx, acct.Username)
	if err != nil {
		o.log.Errorw("owner lookup failed", "user", acct.Username, "err", err)
		return err
	}
	if found && owner != acct.ClientID {
		o.log.Warnw("account held by another client", "user", acct.Username, "client_id", acct.ClientID)
		return fmt.Errorf("provision: account %s: %w", acct.Username, gateway.ErrAccountNotFound)
	}
	return nil
}

// scoped tags a claim lookup failure with the registry stage.  Refusals
// pass through.
func scoped(err error) error {
	if errors.Is(err, gateway.ErrAccountNotFound) {
		return err
	}
	return &StageError{Stage: StageRegistry, Err: err}
}

// Sites lists the sites a client owns.
func (o *Orchestrator) Sites(ctx context.Context, clientID int64) ([]site.Site, error) {
	return o.sites.ByClient(ctx, clientID)
}

// Site returns one site a client owns.
func (o *Orchestrator) Site(ctx context.Context, siteID, clientID int64) (*site.Site, error) {
	return o.owned(ctx, siteID, clientID)
}

// Refresh re-reads the installation behind a site and rewrites only the
// remote-mirrored columns.  Secrets are never touched.
func (o *Orchestrator) Refresh(ctx context.Context, siteID, clientID int64) (*site.Site, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return nil, err
	}
	log := o.log.With("operation", "refresh", "site_id", siteID, "user", rec.CpanelUser, "domain", rec.Domain)

	inst, err := o.finder.FindByDomain(ctx, rec.CpanelUser, rec.Domain, rec.Path)
	if err != nil {
		log.Errorw("refresh could not resolve installation", "err", err)
		return nil, &StageError{Stage: StageDiscovery, Err: err}
	}
	if inst.InstallationID != rec.InstallationID && rec.InstallationID != "" {
		log.Infow("installation id changed", "old", rec.InstallationID, "new", inst.InstallationID, "matched_path", inst.Path)
	}
	if err := o.sites.UpdateRemoteFields(ctx, rec.ID, inst); err != nil {
		log.Errorw("refresh could not update site", "err", err)
		return nil, &StageError{Stage: StageRegistry, Err: err}
	}
	return o.owned(ctx, siteID, clientID)
}

// Backup takes an on-demand WP Toolkit backup and records it.  A timeout is
// a plain failure.
func (o *Orchestrator) Backup(ctx context.Context, siteID, clientID int64) (*site.Backup, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return nil, err
	}
	log := o.log.With("operation", "backup", "site_id", siteID, "user", rec.CpanelUser, "domain", rec.Domain)

	name, err := o.wp.CreateBackup(ctx, rec.CpanelUser, rec.InstallationID)
	if err != nil {
		log.Errorw("backup failed", "err", err)
		return nil, &StageError{Stage: StageWordPress, Err: err}
	}
	b, err := o.sites.AddBackup(ctx, rec.ID, name, site.BackupCompleted)
	if err != nil {
		log.Errorw("backup taken but not recorded", "backup_name", name, "err", err)
		return nil, &PartialSuccessError{
			Account: rec.CpanelUser, Domain: rec.Domain,
			Created: []string{"backup " + name}, Err: err,
		}
	}
	log.Infow("backup recorded", "backup_name", name)
	return b, nil
}

// Backups lists recorded backups of a site, newest first.
func (o *Orchestrator) Backups(ctx context.Context, siteID, clientID int64) ([]site.Backup, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return nil, err
	}
	return o.sites.Backups(ctx, rec.ID)
}

// UpdateWordPress updates core and then refreshes the site row.
func (o *Orchestrator) UpdateWordPress(ctx context.Context, siteID, clientID int64) (*site.Site, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return nil, err
	}
	if err := o.wp.UpdateWordPress(ctx, rec.CpanelUser, rec.InstallationID); err != nil {
		o.log.Errorw("core update failed", "site_id", siteID, "user", rec.CpanelUser, "domain", rec.Domain, "err", err)
		return nil, &StageError{Stage: StageWordPress, Err: err}
	}
	return o.Refresh(ctx, siteID, clientID)
}

// LoginURL returns a one-time admin login link for the owning client.
func (o *Orchestrator) LoginURL(ctx context.Context, siteID, clientID int64) (string, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return "", err
	}
	u, err := o.wp.LoginURL(ctx, rec.CpanelUser, rec.InstallationID)
	if err != nil {
		o.log.Errorw("login url failed", "site_id", siteID, "user", rec.CpanelUser, "err", err)
		return "", &StageError{Stage: StageWordPress, Err: err}
	}
	return u, nil
}

// Credentials opens the stored secrets of a site for one-time display to
// its owner.  FTP fields are left out when no FTP login was created.
func (o *Orchestrator) Credentials(ctx context.Context, siteID, clientID int64) (*site.Credentials, error) {
	rec, err := o.owned(ctx, siteID, clientID)
	if err != nil {
		return nil, err
	}
	type field struct {
		dst    *string
		sealed string
	}
	var c site.Credentials
	fields := []field{
		{&c.AdminUsername, rec.AdminUsername},
		{&c.AdminPassword, rec.AdminPassword},
		{&c.DBName, rec.DBName},
		{&c.DBUser, rec.DBUser},
		{&c.DBPassword, rec.DBPassword},
	}
	if rec.HasFTP() {
		fields = append(fields, field{&c.FTPUsername, rec.FTPUsername}, field{&c.FTPPassword, rec.FTPPassword})
	}
	for _, f := range fields {
		pt, err := o.sites.Reveal(ctx, f.sealed)
		if err != nil {
			o.log.Errorw("credentials could not be opened", "site_id", siteID, "user", rec.CpanelUser, "err", err)
			return nil, &StageError{Stage: StageRegistry, Err: err}
		}
		*f.dst = pt
	}
	o.log.Infow("credentials revealed", "site_id", siteID, "client_id", clientID, "user", rec.CpanelUser)
	return &c, nil
}

// Usage returns the sanitised disk and bandwidth usage of an account
// clientID may reach.
func (o *Orchestrator) Usage(ctx context.Context, user string, clientID int64) (usage.Snapshot, error) {
	if err := o.claim(ctx, hosting.Account{Username: user, ClientID: clientID}); err != nil {
		return usage.Snapshot{}, scoped(err)
	}
	sum, err := o.accounts.AccountSummary(ctx, user)
	if err != nil {
		o.log.Errorw("usage lookup failed", "user", user, "err", err)
		return usage.Snapshot{}, err
	}
	return usage.FromSummary(sum), nil
}
