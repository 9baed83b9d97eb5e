package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

const maxRegistryReplyBytes = 1 << 20

// HTTPDeviceRegistry talks to a hosted device registry over its JSON API.
//
// Requests carry the scoped identity reference as a bearer token. 401 and 403
// map to ErrPermissionDenied. 5xx replies and transport failures map to
// ErrRegistryUnavailable once the client's own short retries are spent.
type HTTPDeviceRegistry struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPDeviceRegistry creates a client for the registry at baseURL.
func NewHTTPDeviceRegistry(baseURL string, retries int, logger *slog.Logger) *HTTPDeviceRegistry {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = retries
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}

	return &HTTPDeviceRegistry{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (h *HTTPDeviceRegistry) do(
	ctx context.Context,
	identity domain.ScopedIdentity,
	method, path string,
	body, reply interface{},
) error {
	var raw interface{}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode registry request: %w", err)
		}
		raw = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, h.baseURL+path, raw)
	if err != nil {
		return fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+identity.Reference)

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.Wrapf(domain.ErrRegistryUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxRegistryReplyBytes))
	if err != nil {
		return apperrors.Wrapf(domain.ErrRegistryUnavailable, "%s %s: %v", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Wrapf(domain.ErrPermissionDenied, "%s %s as %s", method, path, identity.Name)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Wrapf(domain.ErrRegistryUnavailable, "%s %s: status %d", method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("registry rejected %s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if reply != nil {
		if err := json.Unmarshal(payload, reply); err != nil {
			return fmt.Errorf("failed to decode registry reply: %w", err)
		}
	}
	return nil
}

// CreateRole creates or refreshes the identity's role.
func (h *HTTPDeviceRegistry) CreateRole(ctx context.Context, identity domain.ScopedIdentity) error {
	return h.do(ctx, identity, http.MethodPut, "/roles/"+url.PathEscape(identity.Name), map[string]string{
		"reference": identity.Reference,
	}, nil)
}

// AttachRolePolicy replaces the role policy with the identity's actions.
func (h *HTTPDeviceRegistry) AttachRolePolicy(ctx context.Context, identity domain.ScopedIdentity) error {
	return h.do(ctx, identity, http.MethodPut, "/roles/"+url.PathEscape(identity.Name)+"/policy",
		map[string][]string{"actions": identity.Actions}, nil)
}

// EnsureActivator provisions the activation capability.
func (h *HTTPDeviceRegistry) EnsureActivator(
	ctx context.Context,
	identity domain.ScopedIdentity,
	activator domain.Activator,
) error {
	return h.do(ctx, identity, http.MethodPut, "/activators/"+url.PathEscape(identity.Name), map[string]string{
		"address":        activator.Address,
		"role_reference": activator.RoleReference,
		"queue_url":      activator.QueueURL,
	}, nil)
}

// GetRegistrationCode reads the registry's registration code.
func (h *HTTPDeviceRegistry) GetRegistrationCode(ctx context.Context, identity domain.ScopedIdentity) (string, error) {
	var reply struct {
		RegistrationCode string `json:"registration_code"`
	}
	if err := h.do(ctx, identity, http.MethodGet, "/registration-code", nil, &reply); err != nil {
		return "", err
	}
	if reply.RegistrationCode == "" {
		return "", fmt.Errorf("registry returned an empty registration code")
	}
	return reply.RegistrationCode, nil
}

// RegisterCACertificate registers the CA certificate and returns its registry id.
func (h *HTTPDeviceRegistry) RegisterCACertificate(
	ctx context.Context,
	identity domain.ScopedIdentity,
	tm *domain.TrustMaterial,
	registrationCode string,
) (string, error) {
	var reply struct {
		CertificateID string `json:"certificate_id"`
	}
	err := h.do(ctx, identity, http.MethodPost, "/ca-certificates", map[string]string{
		"certificate_pem":   tm.PEM,
		"registration_code": registrationCode,
	}, &reply)
	if err != nil {
		return "", err
	}
	if reply.CertificateID == "" {
		return "", fmt.Errorf("registry returned an empty certificate id")
	}
	return reply.CertificateID, nil
}

// TagResource tags the registered CA certificate.
func (h *HTTPDeviceRegistry) TagResource(
	ctx context.Context,
	identity domain.ScopedIdentity,
	resourceID string,
	tags map[string]string,
) error {
	return h.do(ctx, identity, http.MethodPost, "/resources/"+url.PathEscape(resourceID)+"/tags",
		map[string]map[string]string{"tags": tags}, nil)
}

// CreateTopicRule creates or replaces the routing rule.
func (h *HTTPDeviceRegistry) CreateTopicRule(
	ctx context.Context,
	identity domain.ScopedIdentity,
	rule domain.RoutingRule,
) error {
	return h.do(ctx, identity, http.MethodPut, "/topic-rules/"+url.PathEscape(rule.Name), map[string]string{
		"ca_certificate_id": rule.CACertificateID,
		"target":            rule.Target,
	}, nil)
}
