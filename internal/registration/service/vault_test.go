package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/secrets/localsecrets"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
	"github.com/SuYehTarn/jitr/internal/testutil"
)

func newRegistration(t *testing.T) *domain.Registration {
	t.Helper()
	return &domain.Registration{
		CAID:             "corp",
		CAKeyID:          "ab12",
		CACertificateID:  "cert-1",
		CACertificatePEM: testutil.NewCA(t, "Corp Root").PEM,
		Identity:         domain.NewScopedIdentity("corp", ""),
		VerifierNames:    []string{"chain"},
		RegisteredAt:     time.Now().UTC(),
	}
}

func TestBlobVault_Plaintext(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close() //nolint:errcheck

	vault := NewBlobVault(bucket, nil)
	record := newRegistration(t)

	require.NoError(t, vault.Store(ctx, record))

	stored, err := vault.LoadCertificate(ctx, "corp")
	require.NoError(t, err)
	assert.Equal(t, record.CACertificatePEM, stored)

	metadata, err := bucket.ReadAll(ctx, "ca/corp/registration.json")
	require.NoError(t, err)
	assert.Contains(t, string(metadata), `"verifier_names":["chain"]`)
}

func TestBlobVault_Encrypted(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close() //nolint:errcheck

	key, err := localsecrets.NewRandomKey()
	require.NoError(t, err)
	keeper := localsecrets.NewKeeper(key)
	defer keeper.Close() //nolint:errcheck

	vault := NewBlobVault(bucket, keeper)
	record := newRegistration(t)
	require.NoError(t, vault.Store(ctx, record))

	raw, err := bucket.ReadAll(ctx, "ca/corp/certificate.pem")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "BEGIN CERTIFICATE")

	stored, err := vault.LoadCertificate(ctx, "corp")
	require.NoError(t, err)
	assert.Equal(t, record.CACertificatePEM, stored)
}

func TestBlobVault_NotFound(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close() //nolint:errcheck

	_, err := NewBlobVault(bucket, nil).LoadCertificate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)
}
