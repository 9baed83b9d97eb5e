// Package service invokes verifier capabilities referenced by the registry.
package service

import (
	"context"
	"net/url"
	"strings"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// Invoker resolves and calls verifier capabilities.
type Invoker interface {
	// Resolve reports whether ref points at a capability this invoker can call.
	Resolve(ref domain.Reference) error
	// Invoke asks the capability for a verdict. A nil error with false means
	// the verifier rejected the certificate.
	Invoke(ctx context.Context, ref domain.Reference, req *domain.Request) (bool, error)
}

// CapabilityInvoker routes a reference to the invoker for its scheme.
type CapabilityInvoker struct {
	http    *HTTPInvoker
	builtin *BuiltinInvoker
}

// NewCapabilityInvoker creates a CapabilityInvoker.
func NewCapabilityInvoker(httpInvoker *HTTPInvoker, builtinInvoker *BuiltinInvoker) *CapabilityInvoker {
	return &CapabilityInvoker{http: httpInvoker, builtin: builtinInvoker}
}

// Resolve checks the reference shape without contacting the capability.
func (c *CapabilityInvoker) Resolve(ref domain.Reference) error {
	switch ref.Scheme() {
	case domain.SchemeHTTP, domain.SchemeHTTPS:
		u, err := url.Parse(ref.Address)
		if err != nil || u.Host == "" {
			return apperrors.Wrapf(domain.ErrUnresolvableReference, "malformed address %q", ref.Address)
		}
		return nil
	case domain.SchemeBuiltin:
		name := builtinName(ref)
		if !c.builtin.Supports(name) {
			return apperrors.Wrapf(domain.ErrUnresolvableReference, "unknown builtin %q", name)
		}
		return nil
	default:
		return apperrors.Wrapf(domain.ErrUnresolvableReference, "unsupported address %q", ref.Address)
	}
}

// Invoke calls the capability behind ref.
func (c *CapabilityInvoker) Invoke(ctx context.Context, ref domain.Reference, req *domain.Request) (bool, error) {
	if err := c.Resolve(ref); err != nil {
		return false, err
	}

	if ref.Scheme() == domain.SchemeBuiltin {
		return c.builtin.Invoke(ctx, builtinName(ref), req)
	}
	return c.http.Invoke(ctx, ref, req)
}

func builtinName(ref domain.Reference) string {
	return strings.TrimPrefix(ref.Address[len(domain.SchemeBuiltin):], ":")
}
