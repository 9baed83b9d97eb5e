// Package service provides device registry clients and the trust material
// vault used by CA registration.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"maps"
	"sync"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// LocalDeviceRegistry is an in-process device registry. It enforces the
// scoped identity on every call the way the hosted registry does.
type LocalDeviceRegistry struct {
	mu               sync.RWMutex
	registrationCode string
	roles            map[string]domain.ScopedIdentity
	policies         map[string][]string
	activators       map[string]domain.Activator
	certificates     map[string]string
	tags             map[string]map[string]string
	rules            map[string]domain.RoutingRule
}

// NewLocalDeviceRegistry creates an empty registry with a random registration code.
func NewLocalDeviceRegistry() *LocalDeviceRegistry {
	code := make([]byte, 32)
	_, _ = rand.Read(code)

	return &LocalDeviceRegistry{
		registrationCode: hex.EncodeToString(code),
		roles:            make(map[string]domain.ScopedIdentity),
		policies:         make(map[string][]string),
		activators:       make(map[string]domain.Activator),
		certificates:     make(map[string]string),
		tags:             make(map[string]map[string]string),
		rules:            make(map[string]domain.RoutingRule),
	}
}

func authorize(identity domain.ScopedIdentity, actions ...string) error {
	for _, action := range actions {
		if !identity.Allows(action) {
			return apperrors.Wrapf(domain.ErrPermissionDenied, "%s may not perform %s", identity.Name, action)
		}
	}
	return nil
}

// CreateRole records the identity. Any action outside the scoped set is refused.
func (l *LocalDeviceRegistry) CreateRole(ctx context.Context, identity domain.ScopedIdentity) error {
	if err := authorize(identity, domain.ActionCreateRole); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.roles[identity.Name] = identity
	return nil
}

// AttachRolePolicy grants the identity its actions.
func (l *LocalDeviceRegistry) AttachRolePolicy(ctx context.Context, identity domain.ScopedIdentity) error {
	if err := authorize(identity, domain.ActionAttachRolePolicy); err != nil {
		return err
	}
	for _, action := range identity.Actions {
		if !domain.IsScopedAction(action) {
			return apperrors.Wrapf(domain.ErrPermissionDenied, "action %s is outside the scoped set", action)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.roles[identity.Name]; !ok {
		return apperrors.Wrapf(apperrors.ErrNotFound, "role %s", identity.Name)
	}
	l.policies[identity.Name] = append([]string(nil), identity.Actions...)
	return nil
}

// EnsureActivator provisions the activation capability under the identity.
func (l *LocalDeviceRegistry) EnsureActivator(
	ctx context.Context,
	identity domain.ScopedIdentity,
	activator domain.Activator,
) error {
	if err := authorize(identity, domain.ActionCreateFunction, domain.ActionPassRole); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.activators[identity.Name] = activator
	return nil
}

// GetRegistrationCode returns the registry's registration code.
func (l *LocalDeviceRegistry) GetRegistrationCode(ctx context.Context, identity domain.ScopedIdentity) (string, error) {
	if err := authorize(identity, domain.ActionGetRegistrationCode); err != nil {
		return "", err
	}
	return l.registrationCode, nil
}

// RegisterCACertificate registers the CA certificate. The certificate id is
// its fingerprint, so registering the same certificate again returns the same id.
func (l *LocalDeviceRegistry) RegisterCACertificate(
	ctx context.Context,
	identity domain.ScopedIdentity,
	tm *domain.TrustMaterial,
	registrationCode string,
) (string, error) {
	if err := authorize(identity, domain.ActionRegisterCACertificate); err != nil {
		return "", err
	}
	if registrationCode != l.registrationCode {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "registration code mismatch")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.certificates[tm.Fingerprint] = tm.PEM
	return tm.Fingerprint, nil
}

// TagResource merges tags into the resource's tag set.
func (l *LocalDeviceRegistry) TagResource(
	ctx context.Context,
	identity domain.ScopedIdentity,
	resourceID string,
	tags map[string]string,
) error {
	if err := authorize(identity, domain.ActionTagResource); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.certificates[resourceID]; !ok {
		return apperrors.Wrapf(apperrors.ErrNotFound, "resource %s", resourceID)
	}
	if l.tags[resourceID] == nil {
		l.tags[resourceID] = make(map[string]string, len(tags))
	}
	maps.Copy(l.tags[resourceID], tags)
	return nil
}

// CreateTopicRule creates or replaces the routing rule.
func (l *LocalDeviceRegistry) CreateTopicRule(
	ctx context.Context,
	identity domain.ScopedIdentity,
	rule domain.RoutingRule,
) error {
	if err := authorize(identity, domain.ActionCreateTopicRule); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rules[rule.Name] = rule
	return nil
}

// Tags returns a copy of the tags of a resource.
func (l *LocalDeviceRegistry) Tags(resourceID string) map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return maps.Clone(l.tags[resourceID])
}

// Rule returns the routing rule stored under name.
func (l *LocalDeviceRegistry) Rule(name string) (domain.RoutingRule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rule, ok := l.rules[name]
	return rule, ok
}

// CertificateCount returns the number of distinct registered CA certificates.
func (l *LocalDeviceRegistry) CertificateCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.certificates)
}
