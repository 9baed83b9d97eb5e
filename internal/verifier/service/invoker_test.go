package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"

	"github.com/SuYehTarn/jitr/internal/testutil"
	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

func newTestInvoker() *CapabilityInvoker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCapabilityInvoker(NewHTTPInvoker(nil, logger), NewBuiltinInvoker())
}

func TestCapabilityInvoker_Resolve(t *testing.T) {
	invoker := newTestInvoker()

	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "https", address: "https://denylist.internal/check", wantErr: false},
		{name: "http with port", address: "http://localhost:9000/verify", wantErr: false},
		{name: "builtin chain", address: "builtin:chain", wantErr: false},
		{name: "builtin ocsp", address: "builtin:ocsp", wantErr: false},
		{name: "unknown builtin", address: "builtin:magic", wantErr: true},
		{name: "http without host", address: "http:///path", wantErr: true},
		{name: "unsupported scheme", address: "ftp://files.internal", wantErr: true},
		{name: "empty", address: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := invoker.Resolve(domain.Reference{Address: tt.address})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnresolvableReference)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCapabilityInvoker_InvokeHTTP(t *testing.T) {
	ca := testutil.NewCA(t, "Invoker CA")
	device := ca.IssueDevice(t, "device-1")

	var received verifyRequest
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verified": true}`))
	}))
	defer server.Close()

	verified, err := newTestInvoker().Invoke(
		context.Background(),
		domain.Reference{Address: server.URL, Permission: "grant-1"},
		&domain.Request{
			CorrelationID:  "corr-1",
			CAID:           "ca-1",
			Certificate:    device.Cert,
			CertificatePEM: device.PEM,
			Context:        map[string]string{"client_id": "thing-1"},
		},
	)

	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, "Bearer grant-1", authorization)
	assert.Equal(t, "corr-1", received.CorrelationID)
	assert.Equal(t, device.PEM, received.CertificatePEM)
	assert.Equal(t, "thing-1", received.Context["client_id"])
}

func TestHTTPInvoker_Replies(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantVerified bool
		wantErr      bool
	}{
		{name: "rejected", status: http.StatusOK, body: `{"verified": false}`, wantVerified: false},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: true},
		{name: "missing verdict", status: http.StatusOK, body: `{}`, wantErr: true},
		{name: "malformed", status: http.StatusOK, body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			verified, err := NewHTTPInvoker(server.Client(), nil).Invoke(
				context.Background(),
				domain.Reference{Address: server.URL},
				&domain.Request{},
			)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerified, verified)
		})
	}
}

func TestHTTPInvoker_HonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPInvoker(server.Client(), nil).Invoke(ctx, domain.Reference{Address: server.URL}, &domain.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuiltinInvoker(t *testing.T) {
	ca := testutil.NewCA(t, "Builtin CA")
	other := testutil.NewCA(t, "Other CA")
	device := ca.IssueDevice(t, "device-1")
	stranger := other.IssueDevice(t, "device-2")

	good := ca.OCSPResponse(t, device, ocsp.Good, time.Now().Add(time.Hour))
	revoked := ca.OCSPResponse(t, device, ocsp.Revoked, time.Now().Add(time.Hour))
	stale := ca.OCSPResponse(t, device, ocsp.Good, time.Now().Add(-time.Second))

	tests := []struct {
		name         string
		builtin      string
		req          *domain.Request
		wantVerified bool
		wantErr      error
	}{
		{name: "allow", builtin: BuiltinAllow, req: &domain.Request{}, wantVerified: true},
		{name: "deny", builtin: BuiltinDeny, req: &domain.Request{}, wantVerified: false},
		{
			name:         "chain to registered ca",
			builtin:      BuiltinChain,
			req:          &domain.Request{Certificate: device.Cert, CACertificate: ca.Cert},
			wantVerified: true,
		},
		{
			name:         "chain to foreign ca",
			builtin:      BuiltinChain,
			req:          &domain.Request{Certificate: stranger.Cert, CACertificate: ca.Cert},
			wantVerified: false,
		},
		{
			name:    "chain without ca",
			builtin: BuiltinChain,
			req:     &domain.Request{Certificate: device.Cert},
			wantErr: domain.ErrMissingEvidence,
		},
		{
			name:    "ocsp without staple",
			builtin: BuiltinOCSP,
			req:     &domain.Request{Certificate: device.Cert, CACertificate: ca.Cert},
			wantErr: domain.ErrMissingEvidence,
		},
		{
			name:         "ocsp good",
			builtin:      BuiltinOCSP,
			req:          &domain.Request{Certificate: device.Cert, CACertificate: ca.Cert, OCSPResponse: good},
			wantVerified: true,
		},
		{
			name:         "ocsp revoked",
			builtin:      BuiltinOCSP,
			req:          &domain.Request{Certificate: device.Cert, CACertificate: ca.Cert, OCSPResponse: revoked},
			wantVerified: false,
		},
		{
			name:         "ocsp stale",
			builtin:      BuiltinOCSP,
			req:          &domain.Request{Certificate: device.Cert, CACertificate: ca.Cert, OCSPResponse: stale},
			wantVerified: false,
		},
		{
			name:    "unknown builtin",
			builtin: "magic",
			req:     &domain.Request{},
			wantErr: domain.ErrUnresolvableReference,
		},
	}

	invoker := NewBuiltinInvoker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified, err := invoker.Invoke(context.Background(), tt.builtin, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerified, verified)
		})
	}
}

func TestBuiltinInvoker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuiltinInvoker().Invoke(ctx, BuiltinAllow, &domain.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
