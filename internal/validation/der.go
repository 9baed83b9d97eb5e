package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// DERBase64 accepts standard base64 wrapping exactly one DER SEQUENCE, the outer
// shape of stapled OCSP responses. Empty strings are left to Required.
var DERBase64 = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_der_base64_type", "must be a string")
	}
	if s == "" {
		return nil
	}

	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_der_base64", "must be valid base64-encoded data")
	}

	input := cryptobyte.String(der)
	var body cryptobyte.String
	if !input.ReadASN1(&body, asn1.SEQUENCE) || !input.Empty() {
		return validation.NewError("validation_der_sequence", "must encode a single DER sequence")
	}
	return nil
})
