// internal/gateway/errors.go
//
// Error taxonomy for remote calls.
//
// Context
// -------
// Callers need to tell three failure classes apart:
//
//   • ErrInvalidOperation – the operation token failed the allow-list and no
//     request was sent.
//   • *TransportError     – the request did not yield a usable response
//     (connection, non-2xx, empty or malformed body, missing fields).
//   • *RemoteRejection    – the remote answered cleanly and said no.
//
// IsTimeout narrows TransportError further.  The orchestrator uses it to
// decide whether an account creation may have completed remotely after the
// client gave up.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidOperation is returned before any network activity.
var ErrInvalidOperation = errors.New("gateway: invalid operation")

// ErrAccountNotFound is returned by account read calls for unknown users.
var ErrAccountNotFound = errors.New("gateway: hosting account not found or access denied")

// TransportError carries the raw diagnostic of a failed exchange.
type TransportError struct {
	Service    Service
	Operation  string
	StatusCode int    // 0 when no response arrived
	Timeout    bool   // client-side deadline or upstream timeout status
	Diagnostic string // raw error text or truncated response body
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway: %s %s: transport error", e.Service, e.Operation)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Diagnostic != "" {
		b.WriteString(": ")
		b.WriteString(e.Diagnostic)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejection is an explicit failure status from the remote API.  The
// remote message is preserved verbatim for operators.
type RemoteRejection struct {
	Service   Service
	Operation string
	Message   string
}

func (e *RemoteRejection) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected without a message"
	}
	return fmt.Sprintf("gateway: %s %s: %s", e.Service, e.Operation, msg)
}

// timeoutMarkers are substrings that identify timeout-class diagnostics,
// including the cURL wording WHM proxies echo back.
var timeoutMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"curl error 28",
	"operation too slow",
}

// IsTimeout reports whether err is timeout-class.  A RemoteRejection is
// never timeout-class, whatever its message says.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var rr *RemoteRejection
	if errors.As(err, &rr) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) && te.Timeout {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range timeoutMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
