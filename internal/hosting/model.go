// internal/hosting/model.go
//
// Shared hosting and WordPress value types.
//
// Context
// -------
// The gateway decodes remote responses into these structs, discovery
// filters and matches them, the site registry persists them, and the
// orchestrator passes them between steps.  They carry no behaviour beyond
// normalisation helpers.
//
// Notes
// -----
//   • `Installation.Path` is always normalised (see NormalizePath) once it
//     leaves the gateway.
//   • `InstallationID` is only stable within one WHM server, so it is never
//     used as a cross-system key.  The natural key is (domain, path).
package hosting

import (
	"strings"
	"time"
)

// AccountStatus mirrors the billing platform's service state.
type AccountStatus string

const (
	AccountActive     AccountStatus = "active"
	AccountSuspended  AccountStatus = "suspended"
	AccountTerminated AccountStatus = "terminated"
)

// Account is the external hosting account.  Read-only to this module.
type Account struct {
	Username string        `json:"username"`
	Domain   string        `json:"domain"`
	Status   AccountStatus `json:"status"`
	ClientID int64         `json:"client_id"`
}

// InstallationStatus is reported by WP Toolkit.
type InstallationStatus string

const (
	InstallActive    InstallationStatus = "active"
	InstallSuspended InstallationStatus = "suspended"
)

// Installation is one WordPress deployment as WP Toolkit reports it.
type Installation struct {
	InstallationID   string             `json:"installation_id"`
	Domain           string             `json:"domain"`
	Path             string             `json:"path"`
	WPVersion        string             `json:"wp_version"`
	Status           InstallationStatus `json:"status"`
	SSLEnabled       bool               `json:"ssl_enabled"`
	AutoUpdates      bool               `json:"auto_updates"`
	LastBackup       *time.Time         `json:"last_backup,omitempty"`
	UpdatesAvailable int                `json:"updates_available"`
	AdminURL         string             `json:"admin_url"`
	SiteURL          string             `json:"site_url"`
}

// Key is the natural identity of an installation within one account.
type Key struct {
	Domain string
	Path   string
}

// Key returns the normalised (domain, path) identity.
func (i Installation) Key() Key {
	return Key{Domain: NormalizeDomain(i.Domain), Path: NormalizePath(i.Path)}
}

// NormalizePath strips trailing slashes, ensures a leading slash, and maps
// the empty path to "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// NormalizeDomain lower-cases and trims a hostname, including a trailing
// root dot.
func NormalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}
