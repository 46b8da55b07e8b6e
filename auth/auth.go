// Package auth answers one question for the routing layer: may the caller of
// this request use a given capability.
package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no valid credentials were presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks the capability.
	ErrForbidden = errors.New("capability not granted")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject      string
	Capabilities []string
}

// Has reports whether p holds capability. "*" grants everything.
func (p *Principal) Has(capability string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Capabilities, capability) || slices.Contains(p.Capabilities, "*")
}

// Checker looks up a capability for the caller identified by an
// Authorization header value.
type Checker interface {
	Check(ctx context.Context, authorization, capability string) (*Principal, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, authorization, capability string) (*Principal, error)

func (f CheckerFunc) Check(ctx context.Context, authorization, capability string) (*Principal, error) {
	return f(ctx, authorization, capability)
}

// AllowAll grants every capability to an anonymous principal.
var AllowAll Checker = CheckerFunc(func(context.Context, string, string) (*Principal, error) {
	return &Principal{Subject: "anonymous", Capabilities: []string{"*"}}, nil
})

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(authorization string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
