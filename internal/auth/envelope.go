package auth

import (
	"encoding/base64"
	"encoding/json"
)

// Envelope is the wire representation of a refresh token handed to the
// client: the ledger row id plus the signed refresh JWT, packed into a
// single opaque string. The packing is a transport convenience, not a
// security boundary — the signature and the hashed ledger row are.
type Envelope struct {
	ID           int64  `json:"id"`
	RefreshToken string `json:"refreshToken"`
}

// EncodeEnvelope deterministically packs the envelope into base64 JSON.
func EncodeEnvelope(env Envelope) string {
	data, _ := json.Marshal(env)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeEnvelope unpacks a client-supplied value. Malformed input of
// any kind yields nil; callers branch on nil rather than on an error.
func DecodeEnvelope(encoded string) *Envelope {
	if encoded == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	return &env
}
