package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/secrets"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

// vaultRecord is the registration metadata archived next to the certificate.
type vaultRecord struct {
	CAID            string    `json:"ca_id"`
	CAKeyID         string    `json:"ca_key_id"`
	CACertificateID string    `json:"ca_certificate_id"`
	Identity        string    `json:"identity"`
	VerifierNames   []string  `json:"verifier_names"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// BlobVault archives CA certificates and registration metadata in a blob
// bucket. When a keeper is set, objects are encrypted before upload.
//
// Layout:
//
//	ca/<ca id>/certificate.pem
//	ca/<ca id>/registration.json
type BlobVault struct {
	bucket *blob.Bucket
	keeper *secrets.Keeper
}

// NewBlobVault creates a vault over bucket. keeper may be nil.
func NewBlobVault(bucket *blob.Bucket, keeper *secrets.Keeper) *BlobVault {
	return &BlobVault{bucket: bucket, keeper: keeper}
}

func certificateKey(caID string) string {
	return "ca/" + caID + "/certificate.pem"
}

func metadataKey(caID string) string {
	return "ca/" + caID + "/registration.json"
}

// Store writes the certificate and its metadata, replacing earlier versions.
func (v *BlobVault) Store(ctx context.Context, r *domain.Registration) error {
	metadata, err := json.Marshal(vaultRecord{
		CAID:            r.CAID,
		CAKeyID:         r.CAKeyID,
		CACertificateID: r.CACertificateID,
		Identity:        r.Identity.Reference,
		VerifierNames:   r.VerifierNames,
		RegisteredAt:    r.RegisteredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode vault record: %w", err)
	}

	if err := v.write(ctx, certificateKey(r.CAID), []byte(r.CACertificatePEM), "application/x-pem-file"); err != nil {
		return err
	}
	return v.write(ctx, metadataKey(r.CAID), metadata, "application/json")
}

// LoadCertificate reads the archived certificate PEM of caID.
func (v *BlobVault) LoadCertificate(ctx context.Context, caID string) (string, error) {
	data, err := v.bucket.ReadAll(ctx, certificateKey(caID))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", domain.ErrRegistrationNotFound
		}
		return "", fmt.Errorf("failed to read vault object: %w", err)
	}

	if v.keeper != nil {
		data, err = v.keeper.Decrypt(ctx, data)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt vault object: %w", err)
		}
	}
	return string(data), nil
}

func (v *BlobVault) write(ctx context.Context, key string, data []byte, contentType string) error {
	if v.keeper != nil {
		encrypted, err := v.keeper.Encrypt(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt vault object: %w", err)
		}
		data = encrypted
		contentType = "application/octet-stream"
	}

	if err := v.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("failed to write vault object %s: %w", key, err)
	}
	return nil
}
