// cmd/wpmanager/main.go
//
// wpmanager – hook and client API entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load config (conf/.env → conf/wpmanager.yaml → WPM_* env).
//
//  2. Connect to Vault when a secret references it or the transit cipher
//     is selected, then resolve `vault:` references.
//
//  3. Start the daily rotating logger (tees to console when running in a
//     TTY or when log.tee is set).
//
//  4. Open the billing database and log the registered-site count.
//
//  5. Wire gateway → discovery → site registry → orchestrator.
//
//  6. Serve the hook router until SIGINT/SIGTERM, then drain.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yanizio/wpmanager/internal/config"
	"github.com/yanizio/wpmanager/internal/database"
	"github.com/yanizio/wpmanager/internal/discovery"
	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hooks"
	"github.com/yanizio/wpmanager/internal/logger"
	"github.com/yanizio/wpmanager/internal/provision"
	"github.com/yanizio/wpmanager/internal/secret"
	"github.com/yanizio/wpmanager/internal/server"
	"github.com/yanizio/wpmanager/internal/site"
	"github.com/yanizio/wpmanager/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("wpmanager: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config ───────────────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	//
	// ── 2.  Vault (optional) ────────────────────────────────────────────
	//
	var vc *vault.Client
	if config.NeedsVault(cfg) {
		vc, err = vault.New(ctx, log.Printf)
		if err != nil {
			return fmt.Errorf("connect vault: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			return err
		}
	}

	//
	// ── 3.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Tee || runningInTTY(), cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 4.  Billing DB ──────────────────────────────────────────────────
	//
	logOut.Infow("connecting to billing DB")
	db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("connect billing DB: %w", err)
	}
	defer db.Close()

	// Registered-site count as an early sanity check.
	var registered int
	_ = db.GetContext(ctx, &registered, `SELECT COUNT(*) FROM wp_sites WHERE status <> 'inactive'`)
	logOut.Infow("billing DB online", "registered_sites", registered)

	//
	// ── 5.  Wiring ──────────────────────────────────────────────────────
	//
	cipher, err := newCipher(cfg.Crypto, vc)
	if err != nil {
		return err
	}

	api := gateway.New(cfg.CPanel, logOut)
	engine := discovery.New(api, logOut)
	store := site.NewStore(db, cipher)
	orch := provision.New(api, api, engine, store, cfg.Provision, logOut)

	//
	// ── 6.  HTTP ────────────────────────────────────────────────────────
	//
	router := hooks.NewRouter(orch, hooks.Options{
		Token:           cfg.Hooks.Token,
		ScanConcurrency: cfg.Scan.Concurrency,
	}, logOut)
	srv := server.New(cfg.HTTP.ListenAddr, router, cfg.CPanel.CreateTimeout)
	return server.Run(ctx, srv, logOut)
}

// newCipher selects how credentials are sealed at rest.
func newCipher(c config.Crypto, vc *vault.Client) (secret.Cipher, error) {
	switch c.Provider {
	case "vault":
		zap.S().Infow("sealing credentials with vault transit", "key", c.TransitKey)
		return vault.Transit{Client: vc, Key: c.TransitKey}, nil
	default:
		l, err := secret.NewLocalFromBase64(c.LocalKey)
		if err != nil {
			return nil, fmt.Errorf("crypto.local_key: %w", err)
		}
		return l, nil
	}
}
