package service

import (
	"context"
	"crypto/x509"
	"fmt"
	"time"

	"golang.org/x/crypto/ocsp"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// Builtin verifier names, addressed as "builtin:<name>".
const (
	BuiltinAllow = "allow"
	BuiltinDeny  = "deny"
	BuiltinChain = "chain"
	BuiltinOCSP  = "ocsp"
)

type builtinFunc func(ctx context.Context, req *domain.Request, now time.Time) (bool, error)

// BuiltinInvoker runs verifiers implemented in process.
type BuiltinInvoker struct {
	now      func() time.Time
	builtins map[string]builtinFunc
}

// NewBuiltinInvoker creates a BuiltinInvoker with the standard builtins.
func NewBuiltinInvoker() *BuiltinInvoker {
	return &BuiltinInvoker{
		now: time.Now,
		builtins: map[string]builtinFunc{
			BuiltinAllow: func(context.Context, *domain.Request, time.Time) (bool, error) { return true, nil },
			BuiltinDeny:  func(context.Context, *domain.Request, time.Time) (bool, error) { return false, nil },
			BuiltinChain: verifyChain,
			BuiltinOCSP:  verifyOCSP,
		},
	}
}

// Supports reports whether name is a known builtin.
func (b *BuiltinInvoker) Supports(name string) bool {
	_, ok := b.builtins[name]
	return ok
}

// Invoke runs the named builtin.
func (b *BuiltinInvoker) Invoke(ctx context.Context, name string, req *domain.Request) (bool, error) {
	fn, ok := b.builtins[name]
	if !ok {
		return false, apperrors.Wrapf(domain.ErrUnresolvableReference, "unknown builtin %q", name)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return fn(ctx, req, b.now())
}

// verifyChain accepts certificates that chain to the registered CA.
func verifyChain(_ context.Context, req *domain.Request, now time.Time) (bool, error) {
	if req.Certificate == nil || req.CACertificate == nil {
		return false, apperrors.Wrap(domain.ErrMissingEvidence, "chain verification needs device and CA certificates")
	}

	roots := x509.NewCertPool()
	roots.AddCert(req.CACertificate)

	_, err := req.Certificate.Verify(x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return err == nil, nil
}

// verifyOCSP accepts certificates whose stapled OCSP response, signed by the
// registered CA or its delegate, reports good and is still fresh.
func verifyOCSP(_ context.Context, req *domain.Request, now time.Time) (bool, error) {
	if req.Certificate == nil || req.CACertificate == nil || len(req.OCSPResponse) == 0 {
		return false, apperrors.Wrap(domain.ErrMissingEvidence, "ocsp verification needs a stapled response")
	}

	resp, err := ocsp.ParseResponseForCert(req.OCSPResponse, req.Certificate, req.CACertificate)
	if err != nil {
		return false, fmt.Errorf("failed to parse ocsp response: %w", err)
	}

	if !resp.NextUpdate.IsZero() && now.After(resp.NextUpdate) {
		return false, nil
	}
	return resp.Status == ocsp.Good, nil
}
