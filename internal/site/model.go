package site

import (
	"time"

	"github.com/yanizio/wpmanager/internal/hosting"
)

// Status is the local lifecycle state of a site row.  Rows are never
// deleted; termination moves them to StatusInactive.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// Site mirrors one row in `wp_sites`.  Remote-mirrored columns follow the
// WP Toolkit installation; the seven credential columns hold sealed values
// only (see secret.Cipher):
//
//   - FTPUsername, FTPPassword     – scoped FTP login, empty when FTP
//     creation failed.
//   - AdminUsername, AdminPassword – WordPress administrator.
//   - DBName, DBUser, DBPassword   – WordPress database identity.
type Site struct {
	ID               int64      `db:"id"                json:"id"`
	ClientID         int64      `db:"client_id"         json:"client_id"`
	CpanelUser       string     `db:"cpanel_user"       json:"cpanel_user"`
	InstallationID   string     `db:"installation_id"   json:"installation_id"`
	Domain           string     `db:"domain"            json:"domain"`
	Path             string     `db:"path"              json:"path"`
	WPVersion        string     `db:"wp_version"        json:"wp_version"`
	Status           Status     `db:"status"            json:"status"`
	SSLEnabled       bool       `db:"ssl_enabled"       json:"ssl_enabled"`
	AutoUpdates      bool       `db:"auto_updates"      json:"auto_updates"`
	LastBackup       *time.Time `db:"last_backup"       json:"last_backup,omitempty"`
	UpdatesAvailable int        `db:"updates_available" json:"updates_available"`
	AdminURL         string     `db:"admin_url"         json:"admin_url"`
	SiteURL          string     `db:"site_url"          json:"site_url"`
	FTPUsername      string     `db:"ftp_username"      json:"-"`
	FTPPassword      string     `db:"ftp_password"      json:"-"`
	AdminUsername    string     `db:"admin_username"    json:"-"`
	AdminPassword    string     `db:"admin_password"    json:"-"`
	DBName           string     `db:"db_name"           json:"-"`
	DBUser           string     `db:"db_user"           json:"-"`
	DBPassword       string     `db:"db_password"       json:"-"`
	CreatedAt        time.Time  `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"        json:"updated_at"`
}

// HasFTP reports whether FTP credentials were stored.
func (s *Site) HasFTP() bool { return s.FTPUsername != "" }

// Credentials are plaintext secrets.  Create seals them before they reach
// SQL; the owner's one-time display opens them again.
type Credentials struct {
	FTPUsername   string `json:"ftp_username,omitempty"`
	FTPPassword   string `json:"ftp_password,omitempty"`
	AdminUsername string `json:"admin_username,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
	DBName        string `json:"db_name,omitempty"`
	DBUser        string `json:"db_user,omitempty"`
	DBPassword    string `json:"db_password,omitempty"`
}

// FromInstallation builds an unsaved Site for an account.
func FromInstallation(inst hosting.Installation, cpanelUser string, clientID int64) *Site {
	s := &Site{
		ClientID:   clientID,
		CpanelUser: cpanelUser,
		Status:     StatusActive,
	}
	s.apply(inst)
	return s
}

// apply copies remote-mirrored fields from inst.  Secrets, ownership, and
// the local status are left alone, except that a remotely suspended
// installation is reflected as suspended.
func (s *Site) apply(inst hosting.Installation) {
	s.InstallationID = inst.InstallationID
	s.Domain = hosting.NormalizeDomain(inst.Domain)
	s.Path = hosting.NormalizePath(inst.Path)
	s.WPVersion = inst.WPVersion
	s.SSLEnabled = inst.SSLEnabled
	s.AutoUpdates = inst.AutoUpdates
	s.LastBackup = inst.LastBackup
	s.UpdatesAvailable = inst.UpdatesAvailable
	s.AdminURL = inst.AdminURL
	s.SiteURL = inst.SiteURL
	if inst.Status == hosting.InstallSuspended {
		s.Status = StatusSuspended
	}
}

// Backup mirrors one row in `wp_site_backups`.
type Backup struct {
	ID         int64     `db:"id"          json:"id"`
	SiteID     int64     `db:"site_id"     json:"site_id"`
	BackupName string    `db:"backup_name" json:"backup_name"`
	Status     string    `db:"status"      json:"status"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}
