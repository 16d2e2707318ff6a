// internal/site/repository_test.go
//
// Unit-tests for the Site Registry using sqlmock.
//
// Run: go test ./internal/site -v

package site

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/secret"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, err := secret.NewLocal(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	s := NewStore(sqlx.NewDb(db, "mysql"), c)
	s.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

// capture records the driver value it is matched against.
type capture struct{ got *string }

func (c capture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.got = s
	}
	return ok
}

func insertArgs(override map[int]driver.Value) []driver.Value {
	args := make([]driver.Value, 22)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	for i, v := range override {
		args[i] = v
	}
	return args
}

const keyQuery = `FROM wp_sites WHERE cpanel_user = ? AND domain = ? AND path = ? LIMIT 1`

func TestCreate_EncryptsCredentials(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
		WithArgs("jdoe123", "example.com", "/").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var sealedFTP string
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wp_sites (`)).
		WithArgs(insertArgs(map[int]driver.Value{
			0:  int64(5),
			1:  "jdoe123",
			3:  "example.com",
			4:  "/",
			6:  "active",
			14: capture{&sealedFTP},
		})...).
		WillReturnResult(sqlmock.NewResult(11, 1))

	rec := &Site{ClientID: 5, CpanelUser: "jdoe123", Domain: "Example.com", Path: ""}
	id, err := s.Create(ctx, rec, Credentials{
		FTPUsername:   "wp@example.com",
		FTPPassword:   "f7P!xq2Lr9#z",
		AdminUsername: "admin",
		AdminPassword: "Adm1n!pass",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if id != 11 || rec.ID != 11 {
		t.Fatalf("id = %d / %d, want 11", id, rec.ID)
	}
	if sealedFTP == "" || strings.Contains(sealedFTP, "f7P!xq2Lr9#z") {
		t.Fatalf("ftp_password stored in clear: %q", sealedFTP)
	}
	if rec.FTPPassword != sealedFTP {
		t.Fatalf("record should carry the sealed value")
	}
	plain, err := s.Reveal(ctx, sealedFTP)
	if err != nil {
		t.Fatalf("Reveal error: %v", err)
	}
	if plain != "f7P!xq2Lr9#z" {
		t.Fatalf("round trip = %q", plain)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
		WithArgs("jdoe", "a.com", "/blog").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	_, err := s.Create(context.Background(),
		&Site{CpanelUser: "jdoe", Domain: "a.com", Path: "/blog/"}, Credentials{})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpsertFromDiscovery(t *testing.T) {
	inst := hosting.Installation{InstallationID: "7", Domain: "a.com", Path: "/", WPVersion: "6.6"}

	t.Run("inserts when absent", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
			WithArgs("jdoe", "a.com", "/").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wp_sites (`)).
			WithArgs(insertArgs(map[int]driver.Value{0: int64(5), 2: "7", 5: "6.6", 13: "", 14: ""})...).
			WillReturnResult(sqlmock.NewResult(1, 1))

		created, err := s.UpsertFromDiscovery(context.Background(), inst, "jdoe", 5)
		if err != nil || !created {
			t.Fatalf("created = %v, err = %v", created, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
	})

	t.Run("no-op when present", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
			WithArgs("jdoe", "a.com", "/").
			WillReturnRows(sqlmock.NewRows([]string{"id", "ftp_password"}).AddRow(int64(1), "wpm:v1:xyz"))

		created, err := s.UpsertFromDiscovery(context.Background(), inst, "jdoe", 5)
		if err != nil || created {
			t.Fatalf("created = %v, err = %v", created, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
	})
}

func TestByIDForClient_TenantIsolation(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_sites WHERE id = ? AND client_id = ?`)).
		WithArgs(int64(10), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.ByIDForClient(context.Background(), 10, 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestOwnerOf(t *testing.T) {
	const q = `SELECT client_id FROM wp_sites WHERE cpanel_user = ? ORDER BY id LIMIT 1`

	t.Run("owned", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs("jdoe123").
			WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow(int64(9)))

		owner, found, err := s.OwnerOf(context.Background(), "jdoe123")
		if err != nil || !found || owner != 9 {
			t.Fatalf("OwnerOf = (%d, %v, %v), want (9, true, nil)", owner, found, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
	})

	t.Run("unregistered", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"client_id"}))

		owner, found, err := s.OwnerOf(context.Background(), "nobody")
		if err != nil || found || owner != 0 {
			t.Fatalf("OwnerOf = (%d, %v, %v), want (0, false, nil)", owner, found, err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs("jdoe123").
			WillReturnError(errors.New("connection reset"))

		_, found, err := s.OwnerOf(context.Background(), "jdoe123")
		if err == nil || found || errors.Is(err, ErrNotFound) {
			t.Fatalf("expected wrapped driver error, got found=%v err=%v", found, err)
		}
	})
}

func TestByClient(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_sites WHERE client_id = ? ORDER BY id`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "domain", "path", "status", "ssl_enabled", "last_backup"}).
			AddRow(int64(1), int64(5), "a.com", "/", "active", true, nil).
			AddRow(int64(2), int64(5), "a.com", "/blog", "suspended", false, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))

	rows, err := s.ByClient(context.Background(), 5)
	if err != nil {
		t.Fatalf("ByClient error: %v", err)
	}
	if len(rows) != 2 || rows[0].Status != StatusActive || !rows[0].SSLEnabled || rows[0].LastBackup != nil {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[1].Status != StatusSuspended || rows[1].LastBackup == nil {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSetStatusByUser(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wp_sites SET status = ?, updated_at = ? WHERE cpanel_user = ?`)).
		WithArgs("suspended", sqlmock.AnyArg(), "jdoe").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.SetStatusByUser(context.Background(), "jdoe", StatusSuspended)
	if err != nil || n != 3 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateRemoteFields(t *testing.T) {
	s, mock := newStore(t)
	backup := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wp_sites SET installation_id = ?, wp_version = ?`)).
		WithArgs("7", "6.6.1", true, false, &backup, 2, "https://a.com/wp-admin", "https://a.com",
			sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateRemoteFields(context.Background(), 4, hosting.Installation{
		InstallationID: "7", WPVersion: "6.6.1", SSLEnabled: true, LastBackup: &backup,
		UpdatesAvailable: 2, AdminURL: "https://a.com/wp-admin", SiteURL: "https://a.com",
	})
	if err != nil {
		t.Fatalf("UpdateRemoteFields error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateRemoteFields_Missing(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wp_sites SET installation_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateRemoteFields(context.Background(), 404, hosting.Installation{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddBackup(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wp_site_backups (site_id, backup_name, status, created_at)`)).
		WithArgs(int64(4), "backup_2026_10_01", BackupCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wp_sites SET last_backup = ?, updated_at = ? WHERE id = ?`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := s.AddBackup(context.Background(), 4, "backup_2026_10_01", BackupCompleted)
	if err != nil {
		t.Fatalf("AddBackup error: %v", err)
	}
	if b.ID != 21 || b.SiteID != 4 {
		t.Fatalf("unexpected backup %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAddBackup_RollsBack(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wp_site_backups`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := s.AddBackup(context.Background(), 4, "b", BackupCompleted); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAccounts(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT cpanel_user, client_id FROM wp_sites WHERE status <> ?`)).
		WithArgs("inactive").
		WillReturnRows(sqlmock.NewRows([]string{"cpanel_user", "client_id"}).
			AddRow("alice", int64(1)).
			AddRow("bob", int64(2)))

	got, err := s.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts error: %v", err)
	}
	if len(got) != 2 || got[0].Username != "alice" || got[1].ClientID != 2 {
		t.Fatalf("unexpected accounts %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
