package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuYehTarn/jitr/internal/testutil"
)

func TestVerifierSelection_UnmarshalJSON(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		var req RegisterCARequest
		require.NoError(t, json.Unmarshal([]byte(`{"verifiers":"all"}`), &req))
		assert.True(t, req.Verifiers.All)
		assert.Nil(t, req.Verifiers.Names)
	})

	t.Run("names", func(t *testing.T) {
		var req RegisterCARequest
		require.NoError(t, json.Unmarshal([]byte(`{"verifiers":["chain","ocsp"]}`), &req))
		assert.False(t, req.Verifiers.All)
		assert.Equal(t, []string{"chain", "ocsp"}, req.Verifiers.Names)
	})

	t.Run("other string", func(t *testing.T) {
		var req RegisterCARequest
		assert.Error(t, json.Unmarshal([]byte(`{"verifiers":"some"}`), &req))
	})

	t.Run("object", func(t *testing.T) {
		var req RegisterCARequest
		assert.Error(t, json.Unmarshal([]byte(`{"verifiers":{"name":"chain"}}`), &req))
	})
}

func TestVerifierSelection_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(RegisterCARequest{Verifiers: VerifierSelection{All: true}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"verifiers":"all"`)

	data, err = json.Marshal(RegisterCARequest{Verifiers: VerifierSelection{Names: []string{"chain"}}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"verifiers":["chain"]`)
}

func TestRegisterCARequest_Validate(t *testing.T) {
	pem := testutil.NewCA(t, "Corp Root").PEM

	decode := func(t *testing.T, body string) RegisterCARequest {
		t.Helper()
		var req RegisterCARequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	tests := []struct {
		name    string
		req     RegisterCARequest
		wantErr bool
	}{
		{name: "all", req: RegisterCARequest{CACertificate: pem, Verifiers: VerifierSelection{All: true}}},
		{name: "explicit empty list", req: RegisterCARequest{CACertificate: pem, Verifiers: VerifierSelection{Names: []string{}}}},
		{name: "missing verifiers selects all", req: RegisterCARequest{CACertificate: pem}},
		{name: "missing certificate", req: RegisterCARequest{Verifiers: VerifierSelection{All: true}}, wantErr: true},
		{name: "not pem is left to the use case", req: RegisterCARequest{CACertificate: "abc", Verifiers: VerifierSelection{All: true}}},
		{name: "bad name", req: RegisterCARequest{CACertificate: pem, Verifiers: VerifierSelection{Names: []string{"Bad Name"}}}, wantErr: true},
		{name: "padded ca id", req: RegisterCARequest{CAID: " corp", CACertificate: pem, Verifiers: VerifierSelection{All: true}}, wantErr: true},
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

	t.Run("decoded empty array", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{"ca_certificate": pem, "verifiers": []string{}})
		require.NoError(t, err)
		req := decode(t, string(body))
		assert.NoError(t, req.Validate())
		input := req.ToInput()
		assert.False(t, input.Verifiers.All)
		assert.NotNil(t, input.Verifiers.Names)
		assert.Empty(t, input.Verifiers.Names)
	})

	t.Run("decoded without verifiers", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{"ca_id": "fleet", "ca_certificate": pem})
		require.NoError(t, err)
		req := decode(t, string(body))
		assert.NoError(t, req.Validate())
		input := req.ToInput()
		assert.True(t, input.Verifiers.All)
		assert.Nil(t, input.Verifiers.Names)
	})

	t.Run("decoded null verifiers", func(t *testing.T) {
		req := decode(t, `{"ca_certificate":"x","verifiers":null}`)
		assert.True(t, req.ToInput().Verifiers.All)
	})
}
