package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// maxReplyBytes caps how much of a verifier reply is read.
const maxReplyBytes = 64 << 10

// verifyRequest is the JSON body sent to remote verifiers.
type verifyRequest struct {
	CorrelationID  string            `json:"correlation_id"`
	CAID           string            `json:"ca_id"`
	CertificatePEM string            `json:"certificate_pem"`
	Context        map[string]string `json:"context,omitempty"`
}

// verifyReply is the JSON body remote verifiers answer with.
type verifyReply struct {
	Verified *bool `json:"verified"`
}

// HTTPInvoker calls verifiers exposed over HTTP.
//
// The certificate is POSTed as JSON and the verifier answers
// {"verified": true|false}. A non-empty permission is sent as a bearer token.
// Retries are not attempted: the per-verifier deadline bounds each call.
type HTTPInvoker struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPInvoker creates an HTTPInvoker. A nil client selects a pooled client
// from go-cleanhttp.
func NewHTTPInvoker(client *http.Client, logger *slog.Logger) *HTTPInvoker {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTPInvoker{client: client, logger: logger}
}

// Invoke posts the request to ref.Address and decodes the verdict.
func (h *HTTPInvoker) Invoke(ctx context.Context, ref domain.Reference, req *domain.Request) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		CorrelationID:  req.CorrelationID,
		CAID:           req.CAID,
		CertificatePEM: req.CertificatePEM,
		Context:        req.Context,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ref.Address, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if ref.Permission != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ref.Permission)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("verifier call failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return false, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var reply verifyReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&reply); err != nil {
		return false, fmt.Errorf("failed to decode verifier reply: %w", err)
	}
	if reply.Verified == nil {
		return false, fmt.Errorf("verifier reply has no verdict")
	}

	if h.logger != nil {
		h.logger.Debug("verifier replied",
			slog.String("address", ref.Address),
			slog.String("correlation_id", req.CorrelationID),
			slog.Bool("verified", *reply.Verified),
		)
	}

	return *reply.Verified, nil
}
