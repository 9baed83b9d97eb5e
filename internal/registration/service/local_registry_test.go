package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
	"github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/testutil"
)

func provision(t *testing.T, registry *LocalDeviceRegistry, identity domain.ScopedIdentity) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, registry.CreateRole(ctx, identity))
	require.NoError(t, registry.AttachRolePolicy(ctx, identity))
}

func TestLocalDeviceRegistry_FullRegistration(t *testing.T) {
	ctx := context.Background()
	registry := NewLocalDeviceRegistry()
	identity := domain.NewScopedIdentity("corp", "role")
	provision(t, registry, identity)

	tm, err := domain.ParseTrustMaterial(testutil.NewCA(t, "Corp Root").PEM)
	require.NoError(t, err)

	require.NoError(t, registry.EnsureActivator(ctx, identity, domain.Activator{Address: "activator"}))

	code, err := registry.GetRegistrationCode(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, code, 64)

	certID, err := registry.RegisterCACertificate(ctx, identity, tm, code)
	require.NoError(t, err)
	assert.Equal(t, tm.Fingerprint, certID)

	again, err := registry.RegisterCACertificate(ctx, identity, tm, code)
	require.NoError(t, err)
	assert.Equal(t, certID, again)
	assert.Equal(t, 1, registry.CertificateCount())

	require.NoError(t, registry.TagResource(ctx, identity, certID, map[string]string{domain.VerifiersTag: "chain"}))
	assert.Equal(t, map[string]string{domain.VerifiersTag: "chain"}, registry.Tags(certID))

	rule := domain.NewRoutingRule("corp", certID, "intake")
	require.NoError(t, registry.CreateTopicRule(ctx, identity, rule))
	stored, ok := registry.Rule(rule.Name)
	assert.True(t, ok)
	assert.Equal(t, "intake", stored.Target)
}

func TestLocalDeviceRegistry_PermissionDenied(t *testing.T) {
	ctx := context.Background()
	registry := NewLocalDeviceRegistry()

	t.Run("missing action", func(t *testing.T) {
		identity := domain.ScopedIdentity{Name: "narrow", Actions: []string{domain.ActionCreateRole}}
		_, err := registry.GetRegistrationCode(ctx, identity)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("activator needs pass role", func(t *testing.T) {
		identity := domain.ScopedIdentity{Name: "no-pass", Actions: []string{domain.ActionCreateFunction}}
		err := registry.EnsureActivator(ctx, identity, domain.Activator{})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("broader policy refused", func(t *testing.T) {
		identity := domain.NewScopedIdentity("wide", "")
		identity.Actions = append(identity.Actions, "iam:*")
		require.NoError(t, registry.CreateRole(ctx, identity))
		err := registry.AttachRolePolicy(ctx, identity)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

func TestLocalDeviceRegistry_RegistrationCodeMismatch(t *testing.T) {
	ctx := context.Background()
	registry := NewLocalDeviceRegistry()
	identity := domain.NewScopedIdentity("corp", "")

	tm, err := domain.ParseTrustMaterial(testutil.NewCA(t, "Corp Root").PEM)
	require.NoError(t, err)

	_, err = registry.RegisterCACertificate(ctx, identity, tm, "wrong")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestLocalDeviceRegistry_TagUnknownResource(t *testing.T) {
	registry := NewLocalDeviceRegistry()
	identity := domain.NewScopedIdentity("corp", "")

	err := registry.TagResource(context.Background(), identity, "missing", map[string]string{"a": "b"})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
