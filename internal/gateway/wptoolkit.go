// internal/gateway/wptoolkit.go
//
// Typed helpers for the WP Toolkit API.
//
// Context
// -------
// Every action answers an envelope `{"success":bool,"message":"…",…}`.
// `success == false` becomes a *RemoteRejection with the message kept.
// Installation rows are validated here (id and domain are required) so
// discovery never sees half-parsed records.
//
// Notes
// -----
//   • Paths are normalised on the way in.
//   • `install` shares the long deadline with createacct.  A core install
//     plus database creation routinely takes over a minute.
package gateway

import (
	"context"

	"github.com/yanizio/wpmanager/internal/hosting"
)

type envelope struct {
	Success flexBool   `json:"success"`
	Message flexString `json:"message"`
}

type wireInstallation struct {
	ID               flexString `json:"id"`
	Domain           flexString `json:"domain"`
	Path             flexString `json:"path"`
	Version          flexString `json:"version"`
	Status           flexString `json:"status"`
	SSL              flexBool   `json:"ssl"`
	AutoUpdates      flexBool   `json:"auto_updates"`
	LastBackup       flexTime   `json:"last_backup"`
	UpdatesAvailable flexInt    `json:"updates_available"`
	AdminURL         flexString `json:"admin_url"`
	SiteURL          flexString `json:"site_url"`
}

func (w wireInstallation) toModel(op string) (hosting.Installation, error) {
	if w.ID == "" {
		return hosting.Installation{}, shapeError(WordPress, op, "installations[].id")
	}
	if w.Domain == "" {
		return hosting.Installation{}, shapeError(WordPress, op, "installations[].domain")
	}
	status := hosting.InstallActive
	if w.Status == flexString(hosting.InstallSuspended) {
		status = hosting.InstallSuspended
	}
	updates := int(w.UpdatesAvailable)
	if updates < 0 {
		updates = 0
	}
	return hosting.Installation{
		InstallationID:   string(w.ID),
		Domain:           hosting.NormalizeDomain(string(w.Domain)),
		Path:             hosting.NormalizePath(string(w.Path)),
		WPVersion:        string(w.Version),
		Status:           status,
		SSLEnabled:       bool(w.SSL),
		AutoUpdates:      bool(w.AutoUpdates),
		LastBackup:       w.LastBackup.t,
		UpdatesAvailable: updates,
		AdminURL:         string(w.AdminURL),
		SiteURL:          string(w.SiteURL),
	}, nil
}

// wpCall runs an action, checks the envelope, and decodes the full body
// into out when out is non-nil.
func (c *Client) wpCall(ctx context.Context, op string, p Params, long bool, out any) error {
	timeout := c.timeout
	if long {
		timeout = c.createTimeout
	}
	raw, err := c.call(ctx, WordPress, op, p, timeout)
	if err != nil {
		return err
	}
	var env envelope
	if err := decode(WordPress, op, raw, &env); err != nil {
		return err
	}
	if !env.Success {
		rej := &RemoteRejection{Service: WordPress, Operation: op, Message: string(env.Message)}
		c.log.Errorw("wp toolkit rejected call", "operation", op, "message", rej.Message)
		return rej
	}
	if out != nil {
		return decode(WordPress, op, raw, out)
	}
	return nil
}

// InstallationPage is one page of ListInstallations.
type InstallationPage struct {
	Installations []hosting.Installation
	Page          int
	TotalPages    int
}

// More reports whether the remote signalled further pages.
func (p *InstallationPage) More() bool { return p.TotalPages > p.Page && p.Page > 0 }

// ListInstallations returns one page of installations for a cPanel user.
// page is 1-based.
func (c *Client) ListInstallations(ctx context.Context, user string, page int) (*InstallationPage, error) {
	const op = "list_installations"
	if page < 1 {
		page = 1
	}
	var resp struct {
		Installations *[]wireInstallation `json:"installations"`
		Page          flexInt             `json:"page"`
		TotalPages    flexInt             `json:"total_pages"`
	}
	if err := c.wpCall(ctx, op, Params{"user": user, "page": page}, false, &resp); err != nil {
		return nil, err
	}
	if resp.Installations == nil {
		return nil, shapeError(WordPress, op, "installations")
	}
	out := &InstallationPage{Page: int(resp.Page), TotalPages: int(resp.TotalPages)}
	for _, w := range *resp.Installations {
		inst, err := w.toModel(op)
		if err != nil {
			return nil, err
		}
		out.Installations = append(out.Installations, inst)
	}
	return out, nil
}

// InstallRequest is the input to InstallWordPress.
type InstallRequest struct {
	User          string
	Domain        string
	Path          string
	Title         string
	AdminUser     string
	AdminPassword string
	AdminEmail    string
	Version       string // empty = latest
	Language      string
}

// InstallResult carries the new installation plus its database identity.
type InstallResult struct {
	Installation hosting.Installation
	DBName       string
	DBUser       string
	DBPassword   string
}

// InstallWordPress installs WordPress core at (domain, path).
func (c *Client) InstallWordPress(ctx context.Context, r InstallRequest) (*InstallResult, error) {
	const op = "install"
	p := Params{
		"user":           r.User,
		"domain":         r.Domain,
		"path":           hosting.NormalizePath(r.Path),
		"title":          r.Title,
		"admin_user":     r.AdminUser,
		"admin_password": r.AdminPassword,
		"admin_email":    r.AdminEmail,
	}
	if r.Version != "" {
		p["version"] = r.Version
	}
	if r.Language != "" {
		p["language"] = r.Language
	}
	var resp struct {
		Installation *wireInstallation `json:"installation"`
		DBName       flexString        `json:"db_name"`
		DBUser       flexString        `json:"db_user"`
		DBPassword   flexString        `json:"db_password"`
	}
	if err := c.wpCall(ctx, op, p, true, &resp); err != nil {
		return nil, err
	}
	if resp.Installation == nil {
		return nil, shapeError(WordPress, op, "installation")
	}
	inst, err := resp.Installation.toModel(op)
	if err != nil {
		return nil, err
	}
	return &InstallResult{
		Installation: inst,
		DBName:       string(resp.DBName),
		DBUser:       string(resp.DBUser),
		DBPassword:   string(resp.DBPassword),
	}, nil
}

// EnableSSL requests a certificate for the installation's domain.
func (c *Client) EnableSSL(ctx context.Context, user, installID string) error {
	return c.wpCall(ctx, "enable_ssl", Params{"user": user, "installation_id": installID}, false, nil)
}

// ConfigureBackups sets the toolkit backup schedule.
func (c *Client) ConfigureBackups(ctx context.Context, user, installID, schedule string) error {
	return c.wpCall(ctx, "configure_backups", Params{
		"user": user, "installation_id": installID, "schedule": schedule,
	}, false, nil)
}

// CreateBackup takes an on-demand backup and returns its name.
func (c *Client) CreateBackup(ctx context.Context, user, installID string) (string, error) {
	const op = "create_backup"
	var resp struct {
		BackupName flexString `json:"backup_name"`
	}
	if err := c.wpCall(ctx, op, Params{"user": user, "installation_id": installID}, false, &resp); err != nil {
		return "", err
	}
	if resp.BackupName == "" {
		return "", shapeError(WordPress, op, "backup_name")
	}
	return string(resp.BackupName), nil
}

// UpdateWordPress updates core to the latest release.
func (c *Client) UpdateWordPress(ctx context.Context, user, installID string) error {
	return c.wpCall(ctx, "update_core", Params{"user": user, "installation_id": installID}, true, nil)
}

// SuspendInstallation mirrors an account suspension into WP Toolkit.
func (c *Client) SuspendInstallation(ctx context.Context, user, installID string) error {
	return c.wpCall(ctx, "suspend", Params{"user": user, "installation_id": installID}, false, nil)
}

// UnsuspendInstallation reverses SuspendInstallation.
func (c *Client) UnsuspendInstallation(ctx context.Context, user, installID string) error {
	return c.wpCall(ctx, "unsuspend", Params{"user": user, "installation_id": installID}, false, nil)
}

// LoginURL returns a one-time admin login link.
func (c *Client) LoginURL(ctx context.Context, user, installID string) (string, error) {
	const op = "login_url"
	var resp struct {
		LoginURL flexString `json:"login_url"`
	}
	if err := c.wpCall(ctx, op, Params{"user": user, "installation_id": installID}, false, &resp); err != nil {
		return "", err
	}
	if resp.LoginURL == "" {
		return "", shapeError(WordPress, op, "login_url")
	}
	return string(resp.LoginURL), nil
}
