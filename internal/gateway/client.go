// internal/gateway/client.go
//
// Authenticated HTTP client for the WHM account API and WP Toolkit.
//
/*
Context
--------
Every remote interaction goes through `Call`.  One call is one request:

  1. `operation` is checked against `^[A-Za-z0-9_-]+$` before it is
     interpolated into the URL.
  2. Parameter values are sanitised (strings trimmed, numerics and bools
     passed through, anything else rejected).
  3. The request is sent with `Authorization: whm <user>:<token>` under a
     per-call deadline.
  4. The response must be 2xx with a non-empty JSON object body, otherwise
     a *TransportError is returned carrying the raw diagnostic.

Wire layout
-----------
  • account   → GET  {base}/json-api/{op}?api.version=1&k=v…
  • wordpress → POST {base}/wp-toolkit/v1/{op}   body {"action","params"}

Notes
-----
  • No caching, no retries.  Retrying is a caller decision.
  • Debug traces mask password-bearing keys before they reach the logger.
    Transport failures carry the request URL with the same keys masked.
  • Failures are always logged at ERROR with the masked params.
*/
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/wpmanager/internal/config"
	"github.com/yanizio/wpmanager/internal/logger"
	"github.com/yanizio/wpmanager/internal/metrics"
)

// Service selects the remote API.
type Service string

const (
	Account   Service = "account"
	WordPress Service = "wordpress"
)

// Params are scalar request parameters.
type Params map[string]any

// maxDiagnostic caps how much of a failed response body is kept.
const maxDiagnostic = 512

var opPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Client is safe for concurrent use.
type Client struct {
	base          string
	authHeader    string
	http          *http.Client
	timeout       time.Duration
	createTimeout time.Duration
	debug         bool
	log           *zap.SugaredLogger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithBaseURL overrides the https://host:port base derived from config.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

// New builds a Client from the cPanel config section.
func New(cfg config.CPanel, log *zap.SugaredLogger, opts ...Option) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	create := cfg.CreateTimeout
	if create <= 0 {
		create = config.DefaultCreateTimeout
	}
	create = max(create, timeout)
	port := cfg.Port
	if port == 0 {
		port = config.DefaultCPanelPort
	}
	c := &Client{
		base:       fmt.Sprintf("https://%s:%d", cfg.Host, port),
		authHeader: fmt.Sprintf("whm %s:%s", cfg.Username, cfg.APIToken),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSHandshakeTimeout: 15 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: cfg.InsecureSkipVerify, // self-signed WHM certs
				},
			},
		},
		timeout:       timeout,
		createTimeout: create,
		debug:         cfg.Debug,
		log:           log.Named("gateway"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call issues one request with the default timeout and returns the raw JSON
// object body.
func (c *Client) Call(ctx context.Context, svc Service, op string, params Params) (json.RawMessage, error) {
	return c.call(ctx, svc, op, params, c.timeout)
}

func (c *Client) call(ctx context.Context, svc Service, op string, params Params, timeout time.Duration) (json.RawMessage, error) {
	if !opPattern.MatchString(op) {
		c.log.Errorw("gateway rejected operation", "service", svc, "operation", op)
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	clean, err := sanitizeParams(params)
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.log.Debugw("gateway call", "service", svc, "operation", op, "params", maskParams(clean))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.buildRequest(ctx, svc, op, clean)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.do(req, svc, op)
	metrics.GatewayCallDuration.WithLabelValues(string(svc)).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "transport_error"
		if IsTimeout(err) {
			outcome = "timeout"
		}
		metrics.GatewayCallsTotal.WithLabelValues(string(svc), op, outcome).Inc()
		c.log.Errorw("gateway call failed",
			"service", svc,
			"operation", op,
			"params", maskParams(clean),
			"elapsed", time.Since(start),
			"err", err,
		)
		return nil, err
	}
	metrics.GatewayCallsTotal.WithLabelValues(string(svc), op, "ok").Inc()
	return body, nil
}

func (c *Client) buildRequest(ctx context.Context, svc Service, op string, params Params) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	switch svc {
	case Account:
		q := url.Values{}
		q.Set("api.version", "1")
		for k, v := range params {
			q.Set(k, formatScalar(v))
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet,
			c.base+"/json-api/"+op+"?"+q.Encode(), nil)
	case WordPress:
		payload, merr := json.Marshal(map[string]any{"action": op, "params": params})
		if merr != nil {
			return nil, fmt.Errorf("gateway: encode params: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			c.base+"/wp-toolkit/v1/"+op, bytes.NewReader(payload))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		return nil, fmt.Errorf("gateway: unknown service %q", svc)
	}
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and validates the envelope.
func (c *Client) do(req *http.Request, svc Service, op string) (json.RawMessage, error) {
	te := func(code int, timeout bool, diag string, err error) error {
		return &TransportError{
			Service: svc, Operation: op, StatusCode: code,
			Timeout: timeout, Diagnostic: diag, Err: err,
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = redactURLError(err)
		return nil, te(0, IsTimeout(err), err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, te(resp.StatusCode, IsTimeout(err), "read body: "+err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamTimeout := resp.StatusCode == http.StatusGatewayTimeout
		return nil, te(resp.StatusCode, upstreamTimeout, truncate(string(raw)), nil)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, te(resp.StatusCode, false, "empty response body", nil)
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, te(resp.StatusCode, false, "malformed response body: "+truncate(string(trimmed)), nil)
	}
	return json.RawMessage(trimmed), nil
}

//
// Parameter handling
//

// maskedKeys always hide their values.  Any key containing "password" is
// masked as well.
var maskedKeys = map[string]struct{}{
	"password":       {},
	"pass":           {},
	"admin_password": {},
	"passwd":         {},
	"api_token":      {},
}

const maskValue = "********"

func secretKey(k string) bool {
	lk := strings.ToLower(k)
	_, ok := maskedKeys[lk]
	return ok || strings.Contains(lk, "password")
}

// redactURLError rewrites the URL carried by a *url.Error so masked query
// values never reach diagnostics or logs.  Account calls put credentials in
// the query string, and url.Error prints the full URL.
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactURL(ue.URL), Err: ue.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.User = nil
	q := u.Query()
	for k := range q {
		if secretKey(k) {
			q.Set(k, maskValue)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// maskParams returns a copy safe for logs.  Keys are sorted for stable
// output.
func maskParams(p Params) map[string]any {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(p))
	for _, k := range keys {
		if secretKey(k) {
			out[k] = maskValue
			continue
		}
		out[k] = p[k]
	}
	return out
}

// sanitizeParams trims strings and rejects non-scalar values.
func sanitizeParams(p Params) (Params, error) {
	out := make(Params, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[k] = strings.TrimSpace(t)
		case bool, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, float32, float64:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		default:
			return nil, fmt.Errorf("gateway: parameter %q has non-scalar type %T", k, v)
		}
	}
	return out, nil
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDiagnostic {
		return s
	}
	return s[:maxDiagnostic] + "…"
}

// decode unmarshals an already validated body into v.  Shape errors are
// reported as transport errors so they never masquerade as remote answers.
func decode(svc Service, op string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &TransportError{
			Service: svc, Operation: op,
			Diagnostic: "decode response: " + err.Error(), Err: err,
		}
	}
	return nil
}

// shapeError reports a missing required field.
func shapeError(svc Service, op, field string) error {
	return &TransportError{
		Service: svc, Operation: op,
		Diagnostic: fmt.Sprintf("response missing required field %q", field),
		Err:        errors.New("invalid response shape"),
	}
}
