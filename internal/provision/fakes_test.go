package provision

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yanizio/wpmanager/internal/config"
	"github.com/yanizio/wpmanager/internal/discovery"
	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/site"
)

// fakeAPI stands in for *gateway.Client.  Nil hooks succeed.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	createAccount func(gateway.AccountRequest) error
	exists        func(user, domain string) (gateway.Existence, error)
	summary       func(user string) (*gateway.AccountSummary, error)
	ftp           func(gateway.FTPRequest) error
	install       func(gateway.InstallRequest) (*gateway.InstallResult, error)
	ssl           func(id string) error
	backups       func(id, schedule string) error
	backup        func(id string) (string, error)
	update        func(id string) error
	suspend       func(id string) error
	unsuspend     func(id string) error
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) CreateAccount(_ context.Context, r gateway.AccountRequest) error {
	f.hit("createacct")
	if f.createAccount != nil {
		return f.createAccount(r)
	}
	return nil
}

func (f *fakeAPI) AccountExists(_ context.Context, user, domain string) (gateway.Existence, error) {
	f.hit("exists")
	if f.exists != nil {
		return f.exists(user, domain)
	}
	return gateway.Existence{}, nil
}

func (f *fakeAPI) AccountSummary(_ context.Context, user string) (*gateway.AccountSummary, error) {
	f.hit("summary")
	if f.summary != nil {
		return f.summary(user)
	}
	return &gateway.AccountSummary{User: user}, nil
}

func (f *fakeAPI) CreateFTPAccount(_ context.Context, r gateway.FTPRequest) error {
	f.hit("ftp")
	if f.ftp != nil {
		return f.ftp(r)
	}
	return nil
}

func (f *fakeAPI) InstallWordPress(_ context.Context, r gateway.InstallRequest) (*gateway.InstallResult, error) {
	f.hit("install")
	if f.install != nil {
		return f.install(r)
	}
	return &gateway.InstallResult{
		Installation: hosting.Installation{
			InstallationID: "101",
			Domain:         r.Domain,
			Path:           hosting.NormalizePath(r.Path),
			WPVersion:      "6.6.2",
			Status:         hosting.InstallActive,
			AdminURL:       "https://" + r.Domain + "/wp-admin/",
			SiteURL:        "https://" + r.Domain,
		},
		DBName: r.User + "_wp", DBUser: r.User + "_wp", DBPassword: "dbSecret!9",
	}, nil
}

func (f *fakeAPI) EnableSSL(_ context.Context, _, id string) error {
	f.hit("ssl")
	if f.ssl != nil {
		return f.ssl(id)
	}
	return nil
}

func (f *fakeAPI) ConfigureBackups(_ context.Context, _, id, schedule string) error {
	f.hit("configure_backups")
	if f.backups != nil {
		return f.backups(id, schedule)
	}
	return nil
}

func (f *fakeAPI) CreateBackup(_ context.Context, _, id string) (string, error) {
	f.hit("backup")
	if f.backup != nil {
		return f.backup(id)
	}
	return "backup_" + id, nil
}

func (f *fakeAPI) UpdateWordPress(_ context.Context, _, id string) error {
	f.hit("update")
	if f.update != nil {
		return f.update(id)
	}
	return nil
}

func (f *fakeAPI) SuspendInstallation(_ context.Context, _, id string) error {
	f.hit("suspend")
	if f.suspend != nil {
		return f.suspend(id)
	}
	return nil
}

func (f *fakeAPI) UnsuspendInstallation(_ context.Context, _, id string) error {
	f.hit("unsuspend")
	if f.unsuspend != nil {
		return f.unsuspend(id)
	}
	return nil
}

func (f *fakeAPI) LoginURL(_ context.Context, _, id string) (string, error) {
	f.hit("login_url")
	return "https://example.com/sso/" + id, nil
}

// fakeFinder serves fixed installation lists per user.
type fakeFinder struct {
	mu    sync.Mutex
	lists map[string][]hosting.Installation
	errs  map[string]error
	calls int
}

func (f *fakeFinder) ListInstallations(_ context.Context, user string) ([]hosting.Installation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[user]; err != nil {
		return nil, &discovery.SearchError{User: user, Err: err}
	}
	return append([]hosting.Installation(nil), f.lists[user]...), nil
}

func (f *fakeFinder) FindByDomain(ctx context.Context, user, domain, path string) (hosting.Installation, error) {
	list, err := f.ListInstallations(ctx, user)
	if err != nil {
		return hosting.Installation{}, err
	}
	if inst, ok := discovery.Match(list, domain, path); ok {
		return inst, nil
	}
	return hosting.Installation{}, discovery.ErrNotFound
}

// memRegistry is an in-memory Site Registry.  Credentials are stored as
// given, standing in for an identity cipher.
type memRegistry struct {
	mu        sync.Mutex
	rows      []site.Site
	backups   []site.Backup
	createErr error
	revealErr error
}

func (m *memRegistry) find(user, domain, path string) int {
	for i, r := range m.rows {
		if r.CpanelUser == user && r.Domain == hosting.NormalizeDomain(domain) && r.Path == hosting.NormalizePath(path) {
			return i
		}
	}
	return -1
}

func (m *memRegistry) add(rec *site.Site) {
	rec.ID = int64(len(m.rows) + 1)
	rec.Domain = hosting.NormalizeDomain(rec.Domain)
	rec.Path = hosting.NormalizePath(rec.Path)
	if rec.Status == "" {
		rec.Status = site.StatusActive
	}
	m.rows = append(m.rows, *rec)
}

func (m *memRegistry) Create(_ context.Context, rec *site.Site, c site.Credentials) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	if m.find(rec.CpanelUser, rec.Domain, rec.Path) >= 0 {
		return 0, site.ErrDuplicate
	}
	rec.FTPUsername, rec.FTPPassword = c.FTPUsername, c.FTPPassword
	rec.AdminUsername, rec.AdminPassword = c.AdminUsername, c.AdminPassword
	rec.DBName, rec.DBUser, rec.DBPassword = c.DBName, c.DBUser, c.DBPassword
	m.add(rec)
	return rec.ID, nil
}

func (m *memRegistry) UpsertFromDiscovery(_ context.Context, inst hosting.Installation, user string, clientID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(user, inst.Domain, inst.Path) >= 0 {
		return false, nil
	}
	m.add(site.FromInstallation(inst, user, clientID))
	return true, nil
}

func (m *memRegistry) OwnerOf(_ context.Context, user string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CpanelUser == user {
			return r.ClientID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memRegistry) ByIDForClient(_ context.Context, id, clientID int64) (*site.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id && r.ClientID == clientID {
			cp := r
			return &cp, nil
		}
	}
	return nil, site.ErrNotFound
}

func (m *memRegistry) ByClient(_ context.Context, clientID int64) ([]site.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []site.Site
	for _, r := range m.rows {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRegistry) ByCpanelUser(_ context.Context, user string) ([]site.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []site.Site
	for _, r := range m.rows {
		if r.CpanelUser == user {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRegistry) SetStatusByUser(_ context.Context, user string, status site.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].CpanelUser == user {
			m.rows[i].Status = status
			n++
		}
	}
	return n, nil
}

func (m *memRegistry) UpdateRemoteFields(_ context.Context, id int64, inst hosting.Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			r := &m.rows[i]
			r.InstallationID, r.WPVersion = inst.InstallationID, inst.WPVersion
			r.SSLEnabled, r.AutoUpdates = inst.SSLEnabled, inst.AutoUpdates
			r.LastBackup, r.UpdatesAvailable = inst.LastBackup, inst.UpdatesAvailable
			r.AdminURL, r.SiteURL = inst.AdminURL, inst.SiteURL
			return nil
		}
	}
	return site.ErrNotFound
}

func (m *memRegistry) AddBackup(_ context.Context, siteID int64, name, status string) (*site.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := site.Backup{ID: int64(len(m.backups) + 1), SiteID: siteID, BackupName: name, Status: status, CreatedAt: time.Now()}
	m.backups = append(m.backups, b)
	return &b, nil
}

func (m *memRegistry) Backups(_ context.Context, siteID int64) ([]site.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []site.Backup
	for _, b := range m.backups {
		if b.SiteID == siteID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRegistry) Accounts(_ context.Context) ([]hosting.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]int64{}
	for _, r := range m.rows {
		if r.Status != site.StatusInactive {
			seen[r.CpanelUser] = r.ClientID
		}
	}
	out := make([]hosting.Account, 0, len(seen))
	for u, c := range seen {
		out = append(out, hosting.Account{Username: u, ClientID: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memRegistry) Reveal(_ context.Context, sealed string) (string, error) {
	if m.revealErr != nil {
		return "", m.revealErr
	}
	return sealed, nil
}

// harness bundles an orchestrator with its fakes.
type harness struct {
	api    *fakeAPI
	finder *fakeFinder
	reg    *memRegistry
	slept  []time.Duration
	o      *Orchestrator
}

func newHarness(cfg config.Provision) *harness {
	h := &harness{
		api:    &fakeAPI{},
		finder: &fakeFinder{lists: map[string][]hosting.Installation{}, errs: map[string]error{}},
		reg:    &memRegistry{},
	}
	h.o = New(h.api, h.api, h.finder, h.reg, cfg, nil,
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return nil
		}))
	return h
}

var errRemote = errors.New("remote exploded")
