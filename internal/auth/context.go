// internal/auth/context.go
//
// Caller identity for the hook and client API.
//
// Usage
// -----
//     // After the bearer token checks out.
//     ctx = auth.WithCaller(ctx, auth.CallerBilling)
//
//     // Client routes attach the billing client they act for.
//     ctx = auth.WithClient(ctx, 42)
//     id, ok := auth.ClientID(ctx)   // 42, true
//
// Notes
// -----
// • The billing platform is the only authenticated caller.  It acts on
//   behalf of a client by naming the client in the route, and every site
//   lookup is then scoped to that client id.
// • Two spaces after periods.

package auth

import (
	"context"
	"crypto/subtle"
)

// Caller names an authenticated principal.
type Caller string

// CallerBilling is the billing platform presenting the shared hook token.
const CallerBilling Caller = "billing"

// unexported keys avoid context-key collisions.
type (
	callerKey struct{}
	clientKey struct{}
)

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom extracts the caller.  It returns ("", false) when the request
// was not authenticated.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// WithClient returns a context carrying the billing client id.
func WithClient(ctx context.Context, clientID int64) context.Context {
	return context.WithValue(ctx, clientKey{}, clientID)
}

// ClientID extracts the billing client id.  It returns (0, false) if no
// client is set or if the stored value is not an int64.
func ClientID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(clientKey{}).(int64)
	return id, ok
}

// TokenMatches compares a presented token against the configured one in
// constant time.  An empty expected token never matches.
func TokenMatches(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
