// Package testutil provides fixtures shared by package tests: a throwaway
// PKI for device and CA certificates, a sqlmock constructor and migrated
// databases for integration tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"
)

// Certificate bundles a parsed certificate with its key and PEM form.
type Certificate struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
	PEM  string
}

// NewCA creates a self-signed CA certificate valid for one day.
func NewCA(t *testing.T, commonName string) *Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          randomSerial(t),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	return sign(t, template, template, key, key)
}

// IssueDevice issues a leaf certificate signed by ca.
func (ca *Certificate) IssueDevice(t *testing.T, commonName string) *Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: randomSerial(t),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	return sign(t, template, ca.Cert, key, ca.Key)
}

// OCSPResponse returns a DER OCSP response for device signed by ca.
func (ca *Certificate) OCSPResponse(t *testing.T, device *Certificate, status int, nextUpdate time.Time) []byte {
	t.Helper()

	template := ocsp.Response{
		Status:       status,
		SerialNumber: device.Cert.SerialNumber,
		ThisUpdate:   time.Now().Add(-time.Minute),
		NextUpdate:   nextUpdate,
	}
	if status == ocsp.Revoked {
		template.RevokedAt = time.Now().Add(-time.Minute)
	}

	der, err := ocsp.CreateResponse(ca.Cert, ca.Cert, template, ca.Key)
	require.NoError(t, err)
	return der
}

func sign(
	t *testing.T,
	template, parent *x509.Certificate,
	key *ecdsa.PrivateKey,
	parentKey *ecdsa.PrivateKey,
) *Certificate {
	t.Helper()

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, parentKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Certificate{
		Cert: cert,
		Key:  key,
		PEM:  string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
}

func randomSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	require.NoError(t, err)
	return serial
}
