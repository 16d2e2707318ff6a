// internal/discovery/discovery.go
//
// Installation discovery and identity resolution.
//
/*
Context
--------
WP Toolkit is the source of truth for which WordPress installations exist
under a cPanel account.  This package answers two questions against it:

  • ListInstallations – every installation for one account, de-duplicated
    by (domain, normalised path), in remote order.
  • FindByDomain      – the single installation that corresponds to a
    (domain, path) pair.

Matching
--------
FindByDomain is a two-pass search over the listed installations:

  1. exactMatch   – domain and normalised path both equal.
  2. domainMatch  – domain alone, first in list order.

The second pass exists because the billing system and WP Toolkit drift on
path bookkeeping ("/", "", "/wp").  Exact must always run first.  On an
account with several installations on one domain and no exact hit, the
fallback picks list order, which may associate the wrong installation.

Errors
------
  • ErrNotFound   – searched, no match.
  • *SearchError  – could not search (the list call failed).
*/
package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/wpmanager/internal/gateway"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/logger"
)

// maxPages bounds pagination against a remote that never stops paging.
const maxPages = 100

// ErrNotFound means the account was searched and nothing matched.
var ErrNotFound = errors.New("discovery: no matching installation")

// SearchError means the installations could not be listed.
type SearchError struct {
	User string
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("discovery: cannot list installations for %q: %v", e.User, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Lister is the slice of the gateway discovery needs.
type Lister interface {
	ListInstallations(ctx context.Context, user string, page int) (*gateway.InstallationPage, error)
}

// Engine is stateless; every call hits the remote.
type Engine struct {
	api Lister
	log *zap.SugaredLogger
}

// New returns an Engine over api.
func New(api Lister, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{api: api, log: log.Named("discovery")}
}

// ListInstallations drains every page for user.  Later duplicates under
// the same (domain, path) are dropped.
func (e *Engine) ListInstallations(ctx context.Context, user string) ([]hosting.Installation, error) {
	var (
		out  []hosting.Installation
		seen = make(map[hosting.Key]struct{})
	)
	for page := 1; page <= maxPages; page++ {
		res, err := e.api.ListInstallations(ctx, user, page)
		if err != nil {
			e.log.Errorw("list installations failed", "user", user, "page", page, "err", err)
			return nil, &SearchError{User: user, Err: err}
		}
		for _, inst := range res.Installations {
			inst.Path = hosting.NormalizePath(inst.Path)
			k := inst.Key()
			if _, dup := seen[k]; dup {
				e.log.Debugw("dropping duplicate installation",
					"user", user, "domain", k.Domain, "path", k.Path, "installation_id", inst.InstallationID)
				continue
			}
			seen[k] = struct{}{}
			out = append(out, inst)
		}
		if !res.More() {
			break
		}
		if page == maxPages {
			e.log.Errorw("pagination limit reached", "user", user, "pages", maxPages)
		}
	}
	return out, nil
}

// FindByDomain resolves (domain, path) to one installation.  An empty path
// means the account root.
func (e *Engine) FindByDomain(ctx context.Context, user, domain, path string) (hosting.Installation, error) {
	list, err := e.ListInstallations(ctx, user)
	if err != nil {
		return hosting.Installation{}, err
	}
	inst, ok := Match(list, domain, path)
	if !ok {
		return hosting.Installation{}, ErrNotFound
	}
	if want := hosting.NormalizePath(path); inst.Key().Path != want {
		e.log.Infow("installation matched by domain only",
			"user", user, "domain", hosting.NormalizeDomain(domain), "wanted_path", want, "matched_path", inst.Path)
	}
	return inst, nil
}

// Match resolves (domain, path) against an already listed set: exact
// (domain, path) first, then the first installation on domain.
func Match(list []hosting.Installation, domain, path string) (hosting.Installation, bool) {
	want := hosting.Key{Domain: hosting.NormalizeDomain(domain), Path: hosting.NormalizePath(path)}
	if inst, ok := exactMatch(list, want); ok {
		return inst, true
	}
	return domainMatch(list, want.Domain)
}

// exactMatch is pass one: (domain, path) equality.
func exactMatch(list []hosting.Installation, want hosting.Key) (hosting.Installation, bool) {
	for _, inst := range list {
		if inst.Key() == want {
			return inst, true
		}
	}
	return hosting.Installation{}, false
}

// domainMatch is pass two: domain equality, first in list order.
func domainMatch(list []hosting.Installation, domain string) (hosting.Installation, bool) {
	for _, inst := range list {
		if hosting.NormalizeDomain(inst.Domain) == domain {
			return inst, true
		}
	}
	return hosting.Installation{}, false
}

// HasExact reports whether list already holds an installation at exactly
// (domain, path).
func HasExact(list []hosting.Installation, domain, path string) bool {
	_, ok := exactMatch(list, hosting.Key{Domain: hosting.NormalizeDomain(domain), Path: hosting.NormalizePath(path)})
	return ok
}
