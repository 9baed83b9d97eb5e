// Package repository persists CA registrations.
//
// PostgreSQL and MySQL share the registrations table layout. The identity
// actions and verifier names are stored as JSON arrays. ca_id is unique:
// re-registering a CA updates its row in place and keeps id and registered_at.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/SuYehTarn/jitr/internal/registration/domain"
)

const registrationColumns = `id, ca_id, ca_key_id, ca_certificate_id, ca_certificate_pem, registration_code,
			  identity_name, identity_reference, identity_actions, verifier_names, registered_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// encodeLists returns the JSON columns of a registration.
func encodeLists(r *domain.Registration) (actions, names string, err error) {
	actionsJSON, err := json.Marshal(nonNil(r.Identity.Actions))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode identity actions: %w", err)
	}
	namesJSON, err := json.Marshal(nonNil(r.VerifierNames))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode verifier names: %w", err)
	}
	return string(actionsJSON), string(namesJSON), nil
}

// scanRegistration scans one row. The id column is either a BINARY(16)
// (MySQL) or the textual UUID form (PostgreSQL).
func scanRegistration(s scanner) (*domain.Registration, error) {
	var (
		r       domain.Registration
		id      []byte
		actions string
		names   string
	)

	err := s.Scan(
		&id,
		&r.CAID,
		&r.CAKeyID,
		&r.CACertificateID,
		&r.CACertificatePEM,
		&r.RegistrationCode,
		&r.Identity.Name,
		&r.Identity.Reference,
		&actions,
		&names,
		&r.RegisteredAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(id) == 16 {
		r.ID, err = uuid.FromBytes(id)
	} else {
		r.ID, err = uuid.ParseBytes(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse registration id: %w", err)
	}

	if err := json.Unmarshal([]byte(actions), &r.Identity.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode identity actions: %w", err)
	}
	if err := json.Unmarshal([]byte(names), &r.VerifierNames); err != nil {
		return nil, fmt.Errorf("failed to decode verifier names: %w", err)
	}
	return &r, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
