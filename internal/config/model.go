// internal/config/model.go
//
// Typed configuration model for wpmanager.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                       – dotenv values,
//   • `conf/wpmanager.yaml`                 – primary static file,
//   • `WPM_`-prefixed environment overrides – highest precedence.
//
// Any string value that begins with `vault:` is resolved through the Vault
// KV client by `ResolveSecrets` after the load, so the rest of the program
// only ever sees plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations are written as Go duration strings ("60s", "3m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Sections are handed to constructors by value.

package config

import "time"

//
// HTTP section
//

// HTTP holds the hook/API listener tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds the billing database DSN.  The password is kept apart so
// it can live in Vault while operators tweak host and flags in YAML.  The
// DSN must carry `parseTime=true` so DATETIME columns scan into time.Time.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
}

//
// cPanel section
//

// CPanel describes the WHM endpoint that fronts both the account API and
// WP Toolkit.
type CPanel struct {
	Host               string        `koanf:"host"                 validate:"required,hostname|ip"`
	Port               int           `koanf:"port"                 validate:"gte=1,lte=65535"`
	Username           string        `koanf:"username"             validate:"required"`
	APIToken           string        `koanf:"api_token"            validate:"required"`
	Timeout            time.Duration `koanf:"timeout"              validate:"gte=60s"`
	CreateTimeout      time.Duration `koanf:"create_timeout"       validate:"gtefield=Timeout"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
	Debug              bool          `koanf:"debug"`
}

//
// Provision section
//

// Provision tunes the orchestrator.
type Provision struct {
	RecoveryDelay  time.Duration `koanf:"recovery_delay"`
	DefaultPackage string        `koanf:"default_package"`
	AutoSSL        bool          `koanf:"auto_ssl"`
	BackupSchedule string        `koanf:"backup_schedule" validate:"omitempty,oneof=daily weekly monthly"`
	FTPQuotaMB     int           `koanf:"ftp_quota_mb"    validate:"gte=0"`
}

//
// Crypto section
//

// Crypto selects how credentials are sealed at rest.  `local` uses an
// XChaCha20-Poly1305 key (base64, 32 bytes).  `vault` uses the transit
// engine with the named key.
type Crypto struct {
	Provider   string `koanf:"provider"    validate:"required,oneof=local vault"`
	LocalKey   string `koanf:"local_key"   validate:"required_if=Provider local"`
	TransitKey string `koanf:"transit_key" validate:"required_if=Provider vault"`
}

//
// Hooks section
//

// Hooks holds the shared bearer token the billing platform presents.
type Hooks struct {
	Token string `koanf:"token" validate:"required,min=16"`
}

//
// Log section
//

// Log configures the zap logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Debug bool   `koanf:"debug"`
	Tee   bool   `koanf:"tee"`
}

//
// Scan section
//

// Scan bounds the reconcile fan-out.
type Scan struct {
	Concurrency int `koanf:"concurrency" validate:"gte=1,lte=32"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.
type Paths struct {
	Root string // WPM_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	CPanel    CPanel    `koanf:"cpanel"`
	Provision Provision `koanf:"provision"`
	Crypto    Crypto    `koanf:"crypto"`
	Hooks     Hooks     `koanf:"hooks"`
	Log       Log       `koanf:"log"`
	Scan      Scan      `koanf:"scan"`
	Paths     Paths     `koanf:"-"`
}

//
// Defaults
//

// Default values applied to zero fields after unmarshal.
const (
	DefaultListenAddr     = "127.0.0.1:8089"
	DefaultCPanelPort     = 2087
	DefaultTimeout        = 60 * time.Second
	DefaultCreateTimeout  = 180 * time.Second
	DefaultRecoveryDelay  = 2 * time.Second
	DefaultScanConcurrent = 4
)

// applyDefaults fills zero values.  Booleans are left alone because false
// is a legitimate operator choice.
func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = DefaultListenAddr
	}
	if c.CPanel.Port == 0 {
		c.CPanel.Port = DefaultCPanelPort
	}
	if c.CPanel.Timeout == 0 {
		c.CPanel.Timeout = DefaultTimeout
	}
	if c.CPanel.CreateTimeout == 0 {
		c.CPanel.CreateTimeout = DefaultCreateTimeout
	}
	if c.Provision.RecoveryDelay == 0 {
		c.Provision.RecoveryDelay = DefaultRecoveryDelay
	}
	if c.Crypto.Provider == "" {
		c.Crypto.Provider = "local"
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = DefaultScanConcurrent
	}
}
