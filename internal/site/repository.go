// internal/site/repository.go
//
// Site Registry: the local record of known WordPress installations.
//
// Context
// -------
// The registry is eventually consistent with WP Toolkit.  It is updated by
// provisioning, scans, refreshes, and lifecycle hooks, and read by the
// client and admin surfaces.
//
//   • Natural key  – (cpanel_user, domain, path), enforced here because the
//     schema carries no composite unique index.
//   • Tenancy      – ByIDForClient never returns another client's row.
//   • Secrets      – Create seals credentials through the Cipher.  Reveal
//     opens one value for immediate use.
//
// Notes
// -----
//   • Under concurrent scans of the same account the natural-key check
//     narrows, but does not close, the duplicate-insert window.
//   • Every lookup that misses returns ErrNotFound, never sql.ErrNoRows.
package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/secret"
)

// ErrNotFound is returned when no row matches, including tenant mismatches.
var ErrNotFound = errors.New("site: not found")

// ErrDuplicate is returned by Create when the natural key is taken.
var ErrDuplicate = errors.New("site: installation already registered")

const columns = `id, client_id, cpanel_user, installation_id, domain, path,
	wp_version, status, ssl_enabled, auto_updates, last_backup,
	updates_available, admin_url, site_url, ftp_username, ftp_password,
	admin_username, admin_password, db_name, db_user, db_password,
	created_at, updated_at`

// Store is safe for concurrent use.
type Store struct {
	db     *sqlx.DB
	cipher secret.Cipher
	now    func() time.Time
}

// NewStore wires a Store to db and the credential cipher.
func NewStore(db *sqlx.DB, c secret.Cipher) *Store {
	return &Store{db: db, cipher: c, now: func() time.Time { return time.Now().UTC() }}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// OwnerOf returns the client that owns user's hosting account, taken from
// its oldest row.  found is false when the registry holds no row for user.
func (s *Store) OwnerOf(ctx context.Context, user string) (clientID int64, found bool, err error) {
	const q = `SELECT client_id FROM wp_sites WHERE cpanel_user = ? ORDER BY id LIMIT 1`
	err = s.db.GetContext(ctx, &clientID, q, user)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("site: owner of %s: %w", user, err)
	}
	return clientID, true, nil
}

// ByIDForClient returns the row only when clientID owns it.
func (s *Store) ByIDForClient(ctx context.Context, id, clientID int64) (*Site, error) {
	q := `SELECT ` + columns + ` FROM wp_sites WHERE id = ? AND client_id = ? LIMIT 1`
	var rec Site
	if err := s.db.GetContext(ctx, &rec, q, id, clientID); err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// ByClient lists every row a client owns, oldest first.
func (s *Store) ByClient(ctx context.Context, clientID int64) ([]Site, error) {
	q := `SELECT ` + columns + ` FROM wp_sites WHERE client_id = ? ORDER BY id`
	var rows []Site
	if err := s.db.SelectContext(ctx, &rows, q, clientID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByCpanelUser lists every row of one hosting account, oldest first.
func (s *Store) ByCpanelUser(ctx context.Context, user string) ([]Site, error) {
	q := `SELECT ` + columns + ` FROM wp_sites WHERE cpanel_user = ? ORDER BY id`
	var rows []Site
	if err := s.db.SelectContext(ctx, &rows, q, user); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByKey looks a row up by its natural key.
func (s *Store) ByKey(ctx context.Context, user, domain, path string) (*Site, error) {
	q := `SELECT ` + columns + ` FROM wp_sites WHERE cpanel_user = ? AND domain = ? AND path = ? LIMIT 1`
	var rec Site
	err := s.db.GetContext(ctx, &rec, q,
		user, hosting.NormalizeDomain(domain), hosting.NormalizePath(path))
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// UpsertFromDiscovery inserts inst when its natural key is absent.  An
// existing row is left untouched and created is false.
func (s *Store) UpsertFromDiscovery(ctx context.Context, inst hosting.Installation, user string, clientID int64) (bool, error) {
	_, err := s.ByKey(ctx, user, inst.Domain, inst.Path)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, fmt.Errorf("site: natural-key lookup: %w", err)
	}
	rec := FromInstallation(inst, user, clientID)
	if _, err := s.insert(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Create seals creds into rec and inserts it.  rec.ID and timestamps are
// set on success.
func (s *Store) Create(ctx context.Context, rec *Site, creds Credentials) (int64, error) {
	if _, err := s.ByKey(ctx, rec.CpanelUser, rec.Domain, rec.Path); err == nil {
		return 0, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("site: natural-key lookup: %w", err)
	}

	sealed := []struct {
		dst *string
		val string
	}{
		{&rec.FTPUsername, creds.FTPUsername},
		{&rec.FTPPassword, creds.FTPPassword},
		{&rec.AdminUsername, creds.AdminUsername},
		{&rec.AdminPassword, creds.AdminPassword},
		{&rec.DBName, creds.DBName},
		{&rec.DBUser, creds.DBUser},
		{&rec.DBPassword, creds.DBPassword},
	}
	for _, f := range sealed {
		ct, err := s.cipher.Seal(ctx, f.val)
		if err != nil {
			return 0, fmt.Errorf("site: seal credentials: %w", err)
		}
		*f.dst = ct
	}
	return s.insert(ctx, rec)
}

func (s *Store) insert(ctx context.Context, rec *Site) (int64, error) {
	const q = `
        INSERT INTO wp_sites (
            client_id, cpanel_user, installation_id, domain, path,
            wp_version, status, ssl_enabled, auto_updates, last_backup,
            updates_available, admin_url, site_url, ftp_username, ftp_password,
            admin_username, admin_password, db_name, db_user, db_password,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if rec.Status == "" {
		rec.Status = StatusActive
	}
	rec.Domain = hosting.NormalizeDomain(rec.Domain)
	rec.Path = hosting.NormalizePath(rec.Path)
	now := s.now()
	res, err := s.db.ExecContext(ctx, q,
		rec.ClientID, rec.CpanelUser, rec.InstallationID, rec.Domain, rec.Path,
		rec.WPVersion, string(rec.Status), rec.SSLEnabled, rec.AutoUpdates, rec.LastBackup,
		rec.UpdatesAvailable, rec.AdminURL, rec.SiteURL, rec.FTPUsername, rec.FTPPassword,
		rec.AdminUsername, rec.AdminPassword, rec.DBName, rec.DBUser, rec.DBPassword,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("site: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("site: insert id: %w", err)
	}
	rec.ID, rec.CreatedAt, rec.UpdatedAt = id, now, now
	return id, nil
}

// Reveal opens one sealed credential.  Call it right before use and do not
// keep the result.
func (s *Store) Reveal(ctx context.Context, sealed string) (string, error) {
	pt, err := s.cipher.Open(ctx, sealed)
	if err != nil {
		return "", fmt.Errorf("site: reveal credential: %w", err)
	}
	return pt, nil
}

// SetStatusByUser moves every row of an account to status and returns the
// number of rows changed.
func (s *Store) SetStatusByUser(ctx context.Context, user string, status Status) (int64, error) {
	const q = `UPDATE wp_sites SET status = ?, updated_at = ? WHERE cpanel_user = ?`
	res, err := s.db.ExecContext(ctx, q, string(status), s.now(), user)
	if err != nil {
		return 0, fmt.Errorf("site: set status: %w", err)
	}
	return res.RowsAffected()
}

// UpdateRemoteFields rewrites the remote-mirrored columns of one row from
// inst.  Secrets and ownership are never touched.
func (s *Store) UpdateRemoteFields(ctx context.Context, id int64, inst hosting.Installation) error {
	const q = `
        UPDATE wp_sites
        SET    installation_id = ?, wp_version = ?, ssl_enabled = ?,
               auto_updates = ?, last_backup = ?, updates_available = ?,
               admin_url = ?, site_url = ?, updated_at = ?
        WHERE  id = ?`
	var rec Site
	rec.apply(inst)
	res, err := s.db.ExecContext(ctx, q,
		rec.InstallationID, rec.WPVersion, rec.SSLEnabled,
		rec.AutoUpdates, rec.LastBackup, rec.UpdatesAvailable,
		rec.AdminURL, rec.SiteURL, s.now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("site: update remote fields: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Accounts returns the distinct hosting accounts that own live rows.
func (s *Store) Accounts(ctx context.Context) ([]hosting.Account, error) {
	const q = `
        SELECT DISTINCT cpanel_user, client_id
        FROM   wp_sites
        WHERE  status <> ?
        ORDER  BY cpanel_user`
	rows := make([]struct {
		User     string `db:"cpanel_user"`
		ClientID int64  `db:"client_id"`
	}, 0, 16)
	if err := s.db.SelectContext(ctx, &rows, q, string(StatusInactive)); err != nil {
		return nil, err
	}
	out := make([]hosting.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, hosting.Account{Username: r.User, ClientID: r.ClientID})
	}
	return out, nil
}
