package hooks

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/wpmanager/internal/auth"
	"github.com/yanizio/wpmanager/internal/hosting"
	"github.com/yanizio/wpmanager/internal/provision"
	"github.com/yanizio/wpmanager/internal/site"
)

/*───────────────────────────── Payloads ─────────────────────────────*/

// createdPayload is the body of /hooks/account/created.
type createdPayload struct {
	Account   provision.AccountSpec `json:"account"`
	WordPress provision.WPOptions   `json:"wordpress"`
}

// userPayload is the body of the lifecycle hooks.
type userPayload struct {
	Username string `json:"username"`
}

/*───────────────────────────── Hooks ────────────────────────────────*/

func (h *Handler) accountCreated(w http.ResponseWriter, r *http.Request) {
	var p createdPayload
	if !decode(w, r, &p) {
		return
	}
	res, err := h.svc.CreateAccountAndSite(r.Context(), p.Account, p.WordPress)
	h.respond(w, r, res, err)
}

type lifecycleFunc func(ctx context.Context, user string) (*provision.Result, error)

func (h *Handler) lifecycle(fn lifecycleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p userPayload
		if !decode(w, r, &p) {
			return
		}
		user := strings.TrimSpace(p.Username)
		if user == "" {
			writeError(w, http.StatusUnprocessableEntity, "invalid_input", "username is required")
			return
		}
		res, err := fn(r.Context(), user)
		h.respond(w, r, res, err)
	}
}

/*───────────────────────────── Sites ────────────────────────────────*/

func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	clientID, _ := auth.ClientID(r.Context())
	sites, err := h.svc.Sites(r.Context(), clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sites == nil {
		sites = []site.Site{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

type siteFunc func(ctx context.Context, siteID, clientID int64) (*site.Site, error)

func (h *Handler) siteAction(fn siteFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, clientID, ok := ids(w, r)
		if !ok {
			return
		}
		s, err := fn(r.Context(), siteID, clientID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"site": s})
	}
}

func (h *Handler) createBackup(w http.ResponseWriter, r *http.Request) {
	siteID, clientID, ok := ids(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Backup(r.Context(), siteID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"backup": b})
}

func (h *Handler) listBackups(w http.ResponseWriter, r *http.Request) {
	siteID, clientID, ok := ids(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Backups(r.Context(), siteID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []site.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": list})
}

func (h *Handler) loginURL(w http.ResponseWriter, r *http.Request) {
	siteID, clientID, ok := ids(w, r)
	if !ok {
		return
	}
	u, err := h.svc.LoginURL(r.Context(), siteID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"login_url": u})
}

// credentials is POST so the secrets never sit in a cacheable GET.
func (h *Handler) credentials(w http.ResponseWriter, r *http.Request) {
	siteID, clientID, ok := ids(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Credentials(r.Context(), siteID, clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": c})
}

/*───────────────────────────── Accounts ─────────────────────────────*/

func (h *Handler) account(r *http.Request) hosting.Account {
	clientID, _ := auth.ClientID(r.Context())
	return hosting.Account{Username: chi.URLParam(r, "user"), ClientID: clientID}
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ScanAndRegister(r.Context(), h.account(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) install(w http.ResponseWriter, r *http.Request) {
	var wp provision.WPOptions
	if !decode(w, r, &wp) {
		return
	}
	acct := h.account(r)
	acct.Domain = wp.Domain
	res, err := h.svc.InstallSite(r.Context(), acct, wp)
	h.respond(w, r, res, err)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	acct := h.account(r)
	snap, err := h.svc.Usage(r.Context(), acct.Username, acct.ClientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

/*───────────────────────────── Admin ────────────────────────────────*/

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Reconcile(r.Context(), h.opts.ScanConcurrency)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if summary == nil {
		summary = []provision.AccountScan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": summary})
}

/*───────────────────────────── Helpers ──────────────────────────────*/

// ids reads {siteID} and the client id stored by withClient.
func ids(w http.ResponseWriter, r *http.Request) (siteID, clientID int64, ok bool) {
	siteID, err := strconv.ParseInt(chi.URLParam(r, "siteID"), 10, 64)
	if err != nil || siteID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "site id must be a positive integer")
		return 0, 0, false
	}
	clientID, ok = auth.ClientID(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "missing client id")
		return 0, 0, false
	}
	return siteID, clientID, true
}
