// internal/site/backup.go
//
// Helpers for the `wp_site_backups` child table.  A successful WP Toolkit
// backup adds one row here and bumps `wp_sites.last_backup` in the same
// transaction.
package site

import (
	"context"
	"fmt"
)

// BackupCompleted is the status stored for a finished backup.
const BackupCompleted = "completed"

// AddBackup records a backup for siteID and stamps the parent row.
func (s *Store) AddBackup(ctx context.Context, siteID int64, name, status string) (*Backup, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("site: begin backup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO wp_site_backups (site_id, backup_name, status, created_at) VALUES (?, ?, ?, ?)`,
		siteID, name, status, now)
	if err != nil {
		return nil, fmt.Errorf("site: insert backup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("site: backup id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE wp_sites SET last_backup = ?, updated_at = ? WHERE id = ?`,
		now, now, siteID); err != nil {
		return nil, fmt.Errorf("site: stamp last_backup: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("site: commit backup: %w", err)
	}
	return &Backup{ID: id, SiteID: siteID, BackupName: name, Status: status, CreatedAt: now}, nil
}

// Backups lists the backups of one site, newest first.
func (s *Store) Backups(ctx context.Context, siteID int64) ([]Backup, error) {
	const q = `
	    SELECT  id, site_id, backup_name, status, created_at
	    FROM    wp_site_backups
	    WHERE   site_id = ?
	    ORDER   BY created_at DESC, id DESC`
	rows := make([]Backup, 0, 8)
	if err := s.db.SelectContext(ctx, &rows, q, siteID); err != nil {
		return nil, err
	}
	return rows, nil
}
