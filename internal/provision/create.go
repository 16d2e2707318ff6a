package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yanizio/wpmanager/internal/discovery"
	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/metrics"
	"github.com/yanizio/wpmanager/internal/secret"
	"github.com/yanizio/wpmanager/internal/site"
)

// docRoot is where WHM places the primary domain's files.
const docRoot = "public_html"

// CreateAccountAndSite creates the hosting account and, with AutoInstall,
// installs WordPress, creates a scoped FTP login, and registers the site.
func (o *Orchestrator) CreateAccountAndSite(ctx context.Context, spec AccountSpec, wp WPOptions) (*Result, error) {
	spec.Username = strings.TrimSpace(spec.Username)
	spec.Domain = hosting.NormalizeDomain(spec.Domain)
	acct := hosting.Account{Username: spec.Username, Domain: spec.Domain, Status: hosting.AccountActive, ClientID: spec.ClientID}
	r := o.begin("create_account_and_site", acct)

	if err := check(spec, wp); err != nil {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		r.log.Infow("rejected invalid input", "err", err)
		return r.res, err
	}

	r.to(StateAccountCreating)
	plan := spec.Plan
	if plan == "" {
		plan = o.cfg.DefaultPackage
	}
	err := o.accounts.CreateAccount(ctx, gateway.AccountRequest{
		Username: spec.Username,
		Domain:   spec.Domain,
		Password: spec.Password,
		Email:    spec.Email,
		Plan:     plan,
	})
	if err != nil {
		if !gateway.IsTimeout(err) || !o.recoverAccount(ctx, r, spec.Username, spec.Domain) {
			return r.res, r.fail(StageAccount, err)
		}
		r.res.TimeoutRecovery = true
	}
	r.to(StateAccountCreated)

	if !wp.AutoInstall {
		r.done()
		return r.res, nil
	}
	if wp.AdminEmail == "" {
		wp.AdminEmail = spec.Email
	}
	if err := o.installAndRegister(ctx, r, acct, wp, []string{"hosting account " + spec.Username}); err != nil {
		return r.res, err
	}
	r.done()
	return r.res, nil
}

// recoverAccount decides whether a timed-out createacct completed remotely.
// It waits RecoveryDelay, then checks existence once.
func (o *Orchestrator) recoverAccount(ctx context.Context, r *run, user, domain string) bool {
	r.log.Infow("account creation timed out, probing", "delay", o.cfg.RecoveryDelay)
	if err := o.sleep(ctx, o.cfg.RecoveryDelay); err != nil {
		r.log.Errorw("recovery wait aborted", "err", err)
		return false
	}
	ex, err := o.accounts.AccountExists(ctx, user, domain)
	if err != nil {
		r.log.Errorw("existence check failed", "err", err)
		return false
	}
	if !ex.Exists || !ex.DomainMatches {
		r.log.Infow("account absent after timeout", "exists", ex.Exists, "reported_domain", ex.Domain)
		return false
	}
	r.log.Infow("account creation recovered after timeout")
	metrics.TimeoutRecoveriesTotal.Inc()
	return true
}

// InstallSite installs WordPress into an existing account.  An exact
// (domain, path) match already on the account refuses the install.
func (o *Orchestrator) InstallSite(ctx context.Context, acct hosting.Account, wp WPOptions) (*Result, error) {
	acct.Domain = hosting.NormalizeDomain(acct.Domain)
	r := o.begin("install_site", acct)

	if err := check(wp); err != nil {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		return r.res, err
	}
	if acct.Username == "" {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		return r.res, invalid("username", "required")
	}
	if wp.AdminEmail == "" {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		return r.res, invalid("admin_email", "required")
	}
	if err := o.claim(ctx, acct); err != nil {
		if errors.Is(err, gateway.ErrAccountNotFound) {
			r.res.FailedStage, r.res.State = StageValidate, StateFailed
			return r.res, err
		}
		return r.res, r.fail(StageRegistry, err)
	}
	domain := wp.Domain
	if domain == "" {
		domain = acct.Domain
	}
	if domain == "" {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		return r.res, invalid("domain", "required")
	}

	list, err := o.finder.ListInstallations(ctx, acct.Username)
	if err != nil {
		return r.res, r.fail(StageDiscovery, err)
	}
	if discovery.HasExact(list, domain, wp.Path) {
		r.res.FailedStage, r.res.State = StageValidate, StateFailed
		r.log.Infow("refusing install over existing installation", "path", hosting.NormalizePath(wp.Path))
		return r.res, invalid("path", "already_installed")
	}

	r.to(StateAccountCreated)
	if err := o.installAndRegister(ctx, r, acct, wp, nil); err != nil {
		return r.res, err
	}
	r.done()
	return r.res, nil
}

// installAndRegister runs the WordPress, FTP, and registry steps.  created
// lists what already exists remotely, for PartialSuccessError.
func (o *Orchestrator) installAndRegister(ctx context.Context, r *run, acct hosting.Account, wp WPOptions, created []string) error {
	domain := hosting.NormalizeDomain(wp.Domain)
	if domain == "" {
		domain = acct.Domain
	}
	path := hosting.NormalizePath(wp.Path)

	adminUser := wp.AdminUser
	if adminUser == "" {
		tok, err := secret.Token(6)
		if err != nil {
			return r.fail(StageWordPress, fmt.Errorf("generate admin user: %w", err))
		}
		adminUser = "wp_" + tok
	}
	adminPass, err := secret.Password(20)
	if err != nil {
		return r.fail(StageWordPress, fmt.Errorf("generate admin password: %w", err))
	}
	title := wp.Title
	if title == "" {
		title = domain
	}

	r.to(StateWPInstalling)
	inst, err := o.wp.InstallWordPress(ctx, gateway.InstallRequest{
		User:          acct.Username,
		Domain:        domain,
		Path:          path,
		Title:         title,
		AdminUser:     adminUser,
		AdminPassword: adminPass,
		AdminEmail:    wp.AdminEmail,
		Version:       wp.Version,
		Language:      wp.Language,
	})
	if err != nil {
		return r.fail(StageWordPress, err)
	}
	r.to(StateWPInstalled)
	r.res.Installation = &inst.Installation
	created = append(created, "wordpress installation "+inst.Installation.InstallationID)
	installID := inst.Installation.InstallationID

	ssl := o.cfg.AutoSSL
	if wp.SSL != nil {
		ssl = *wp.SSL
	}
	if ssl {
		if err := o.wp.EnableSSL(ctx, acct.Username, installID); err != nil {
			r.warn(StepSSL, domain, err)
		} else {
			r.res.Installation.SSLEnabled = true
		}
	}
	schedule := wp.BackupSchedule
	if schedule == "" {
		schedule = o.cfg.BackupSchedule
	}
	if schedule != "" {
		if err := o.wp.ConfigureBackups(ctx, acct.Username, installID, schedule); err != nil {
			r.warn(StepBackupSchedule, schedule, err)
		}
	}

	r.to(StateFTPCreating)
	creds := site.Credentials{
		AdminUsername: adminUser,
		AdminPassword: adminPass,
		DBName:        inst.DBName,
		DBUser:        inst.DBUser,
		DBPassword:    inst.DBPassword,
	}
	if login, pass, err := o.createFTP(ctx, acct.Username, domain, path); err != nil {
		r.warn(StepFTP, domain+path, err)
	} else {
		creds.FTPUsername, creds.FTPPassword = login, pass
		created = append(created, "ftp account "+login)
	}

	rec := site.FromInstallation(inst.Installation, acct.Username, acct.ClientID)
	if _, err := o.sites.Create(ctx, rec, creds); err != nil {
		r.res.FailedStage, r.res.State = StageRegistry, StateFailed
		perr := &PartialSuccessError{Account: acct.Username, Domain: domain, Created: created, Err: err}
		r.log.Errorw("remote resources created but registration failed",
			"created", created, "installation_id", installID, "err", err)
		metrics.ProvisionTotal.WithLabelValues(string(StateFailed)).Inc()
		return perr
	}
	r.res.Site = rec
	r.to(StateRegistered)
	return nil
}

// createFTP adds an FTP login confined to the installation directory.  The
// returned login is the full user@domain form WHM expects.
func (o *Orchestrator) createFTP(ctx context.Context, user, domain, path string) (string, string, error) {
	tok, err := secret.Token(5)
	if err != nil {
		return "", "", err
	}
	pass, err := secret.Password(16)
	if err != nil {
		return "", "", err
	}
	local := "wp" + tok
	home := docRoot
	if path != "/" {
		home += path
	}
	err = o.accounts.CreateFTPAccount(ctx, gateway.FTPRequest{
		User:     user,
		Login:    local,
		Password: pass,
		HomeDir:  home,
		QuotaMB:  o.cfg.FTPQuotaMB,
	})
	if err != nil {
		return "", "", err
	}
	return local + "@" + domain, pass, nil
}
