package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

func TestPutVerifierRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     PutVerifierRequest
		wantErr bool
	}{
		{name: "valid http", req: PutVerifierRequest{Name: "denylist", Reference: "https://denylist.internal"}},
		{name: "valid builtin with permission", req: PutVerifierRequest{Name: "ocsp", Reference: "builtin:ocsp", Permission: "p"}},
		{name: "missing name", req: PutVerifierRequest{Reference: "builtin:allow"}, wantErr: true},
		{name: "reserved name", req: PutVerifierRequest{Name: "all", Reference: "builtin:allow"}, wantErr: true},
		{name: "missing reference", req: PutVerifierRequest{Name: "gate"}, wantErr: true},
		{name: "padded reference", req: PutVerifierRequest{Name: "gate", Reference: " builtin:allow"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPutVerifierRequest_ToReference(t *testing.T) {
	req := PutVerifierRequest{Name: "gate", Reference: "builtin:allow", Permission: "grant"}
	assert.Equal(t, domain.Reference{Address: "builtin:allow", Permission: "grant"}, req.ToReference())
}

func TestMapVerifiersToListResponse(t *testing.T) {
	response := MapVerifiersToListResponse([]*domain.Verifier{
		{Name: "chain", Reference: domain.Reference{Address: "builtin:chain"}},
		{Name: "denylist", Reference: domain.Reference{Address: "https://denylist.internal", Permission: "secret"}},
	})

	assert.Len(t, response.Data, 2)
	assert.False(t, response.Data[0].HasPermission)
	assert.True(t, response.Data[1].HasPermission)
	assert.Equal(t, "https://denylist.internal", response.Data[1].Reference)
}
