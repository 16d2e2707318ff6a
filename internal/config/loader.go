// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/wpmanager.yaml`.
  3. Environment variables prefixed `WPM_`, where `__` maps to “.”
     (e.g., `WPM_CPANEL__API_TOKEN → cpanel.api_token`).

After merging, the tree is unmarshalled into typed structs, defaults are
applied, and the result is validated.  Load returns the only copy; callers
hand sections to constructors.

`ResolveSecrets()` runs after Vault is online.  It swaps every supported
`vault:<mount/path>#<key>` reference for the stored value so that callers
never handle Vault URIs.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span:  final “config loaded” with key highlights (no secrets).
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "WPM_"
	fileName    = "wpmanager.yaml"
	vaultPrefix = "vault:"
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves WPM_ROOT or climbs directories until conf/wpmanager.yaml
// is found.  Falls back to the executable layout `<root>/bin/wpmanager`.
func rootDir() string {
	if r := os.Getenv("WPM_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("config: load %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: WPM_CPANEL__HOST → cpanel.host
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(root, "logs")
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"cpanel_host", cfg.CPanel.Host,
		"crypto", cfg.Crypto.Provider,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps `WPM_CPANEL__API_TOKEN` to `cpanel.api_token`.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

/*──────────────────────────── vault references ─────────────────────────────*/

// KVReader is satisfied by *vault.Client.
type KVReader interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// ResolveSecrets replaces `vault:` references in the secret-bearing fields.
// A nil reader is allowed only when no field carries a reference.
func ResolveSecrets(ctx context.Context, cfg *Config, kv KVReader) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"database.password", &cfg.Database.Password},
		{"cpanel.api_token", &cfg.CPanel.APIToken},
		{"crypto.local_key", &cfg.Crypto.LocalKey},
		{"hooks.token", &cfg.Hooks.Token},
	}
	for _, f := range fields {
		ref, ok := strings.CutPrefix(*f.ptr, vaultPrefix)
		if !ok {
			continue
		}
		if kv == nil {
			return fmt.Errorf("config: %s references vault but no vault client is configured", f.name)
		}
		path, key, ok := strings.Cut(ref, "#")
		if !ok || path == "" || key == "" {
			return fmt.Errorf("config: %s: vault reference must look like vault:<path>#<key>", f.name)
		}
		val, err := kv.GetKV(ctx, path, key, 0)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.name, err)
		}
		*f.ptr = val
	}
	return nil
}

// NeedsVault reports whether any field still holds a vault reference or
// the crypto provider is the transit engine.
func NeedsVault(cfg *Config) bool {
	if cfg.Crypto.Provider == "vault" {
		return true
	}
	for _, s := range []string{cfg.Database.Password, cfg.CPanel.APIToken, cfg.Crypto.LocalKey, cfg.Hooks.Token} {
		if strings.HasPrefix(s, vaultPrefix) {
			return true
		}
	}
	return false
}
