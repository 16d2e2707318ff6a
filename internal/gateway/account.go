// internal/gateway/account.go
//
// Typed helpers for the WHM account-management API.
//
// Context
// -------
// Mutating functions answer `{"result":[{"status":1,"statusmsg":"…"}]}`
// where status 1 means success.  Read functions answer flat maps such as
// `{"acct":[{…}]}`, or `{"status":0,"statusmsg":"…"}` when the account does
// not exist.
//
// Notes
// -----
//   • createacct runs under the long create timeout.  Remote provisioning
//     sometimes outlives the default deadline.
//   • Usage fields stay untyped (`any`) because WHM mixes numbers, numeric
//     strings, and words like "unlimited".  internal/usage sanitises them.
package gateway

import (
	"context"
	"errors"

	"github.com/yanizio/wpmanager/internal/hosting"
)

// AccountRequest is the input to CreateAccount.
type AccountRequest struct {
	Username string
	Domain   string
	Password string
	Email    string
	Plan     string
}

// AccountSummary is the subset of accountsummary the core relies on.
type AccountSummary struct {
	User           string
	Domain         string
	Email          string
	Plan           string
	Suspended      bool
	DiskUsed       any
	DiskLimit      any
	BandwidthUsed  any
	BandwidthLimit any
}

// Existence is the answer to AccountExists.
type Existence struct {
	Exists        bool
	Domain        string // primary domain WHM reports for the user
	DomainMatches bool   // Domain equals the checked domain
}

// FTPRequest is the input to CreateFTPAccount.
type FTPRequest struct {
	User     string // owning cPanel account
	Login    string // local part; WHM appends @domain
	Password string
	HomeDir  string // relative to the account home
	QuotaMB  int    // 0 = unlimited
}

type whmStatus struct {
	Result []struct {
		Status    flexInt    `json:"status"`
		StatusMsg flexString `json:"statusmsg"`
	} `json:"result"`
}

// mutate runs a status-returning account function.
func (c *Client) mutate(ctx context.Context, op string, p Params, long bool) error {
	timeout := c.timeout
	if long {
		timeout = c.createTimeout
	}
	raw, err := c.call(ctx, Account, op, p, timeout)
	if err != nil {
		return err
	}
	var st whmStatus
	if err := decode(Account, op, raw, &st); err != nil {
		return err
	}
	if len(st.Result) == 0 {
		return shapeError(Account, op, "result")
	}
	if st.Result[0].Status != 1 {
		rej := &RemoteRejection{Service: Account, Operation: op, Message: string(st.Result[0].StatusMsg)}
		c.log.Errorw("account api rejected call", "operation", op, "message", rej.Message)
		return rej
	}
	return nil
}

// CreateAccount provisions a new hosting account.
func (c *Client) CreateAccount(ctx context.Context, r AccountRequest) error {
	p := Params{
		"username":     r.Username,
		"domain":       r.Domain,
		"password":     r.Password,
		"contactemail": r.Email,
	}
	if r.Plan != "" {
		p["plan"] = r.Plan
	}
	return c.mutate(ctx, "createacct", p, true)
}

// AccountSummary reads usage and identity for one account.  Unknown users
// yield ErrAccountNotFound.
func (c *Client) AccountSummary(ctx context.Context, user string) (*AccountSummary, error) {
	const op = "accountsummary"
	raw, err := c.call(ctx, Account, op, Params{"user": user}, c.timeout)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Acct []struct {
			User       flexString `json:"user"`
			Domain     flexString `json:"domain"`
			Email      flexString `json:"email"`
			Plan       flexString `json:"plan"`
			Suspended  flexBool   `json:"suspended"`
			DiskUsed   any        `json:"diskused"`
			DiskLimit  any        `json:"disklimit"`
			TotalBytes any        `json:"totalbytes"`
			Limit      any        `json:"limit"`
		} `json:"acct"`
		Status    *flexInt   `json:"status"`
		StatusMsg flexString `json:"statusmsg"`
	}
	if err := decode(Account, op, raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.Acct) == 0 {
		if resp.Status != nil && *resp.Status == 0 {
			return nil, ErrAccountNotFound
		}
		return nil, shapeError(Account, op, "acct")
	}
	a := resp.Acct[0]
	if a.Domain == "" {
		return nil, shapeError(Account, op, "acct.domain")
	}
	return &AccountSummary{
		User:           string(a.User),
		Domain:         string(a.Domain),
		Email:          string(a.Email),
		Plan:           string(a.Plan),
		Suspended:      bool(a.Suspended),
		DiskUsed:       a.DiskUsed,
		DiskLimit:      a.DiskLimit,
		BandwidthUsed:  a.TotalBytes,
		BandwidthLimit: a.Limit,
	}, nil
}

// AccountExists is the idempotent existence check used by timeout recovery.
func (c *Client) AccountExists(ctx context.Context, user, domain string) (Existence, error) {
	sum, err := c.AccountSummary(ctx, user)
	if errors.Is(err, ErrAccountNotFound) {
		return Existence{}, nil
	}
	if err != nil {
		return Existence{}, err
	}
	reported := hosting.NormalizeDomain(sum.Domain)
	return Existence{
		Exists:        true,
		Domain:        reported,
		DomainMatches: reported == hosting.NormalizeDomain(domain),
	}, nil
}

// CreateFTPAccount adds an FTP login scoped to HomeDir.
func (c *Client) CreateFTPAccount(ctx context.Context, r FTPRequest) error {
	p := Params{
		"user":     r.User,
		"login":    r.Login,
		"password": r.Password,
		"homedir":  r.HomeDir,
	}
	if r.QuotaMB > 0 {
		p["quota"] = r.QuotaMB
	}
	return c.mutate(ctx, "add_ftp", p, false)
}
