// Package claims defines IdentityClaims, the plaintext payload ECIES-encrypted
// into every AIdCredential. It is shared by the issuer (which constructs and
// encrypts it) and the validator (which decrypts and checks it), never
// persisted on its own.
package claims

import (
	"encoding/json"
	"time"
)

// IdentityClaims is never persisted; it exists only as ECIES plaintext in
// transit and in memory during validation. Field order is fixed (matches the
// struct's declaration order, which Go's encoding/json preserves) so two
// independent implementations produce byte-identical serializations:
// realm_id, actor_id, expr_time, psk.
type IdentityClaims struct {
	RealmID    uint32 `json:"realm_id"`
	ActorIDStr string `json:"actor_id"`
	ExprTime   int64  `json:"expr_time"` // unix seconds
	PSK        []byte `json:"psk"`       // 32 random bytes, base64 in JSON
}

// IsExpired reports whether the claims' expiry has passed relative to now.
// Supplements §4.11: both the issuer (pre-issuance sanity check) and the
// validator (step 3 of check()) consult this instead of comparing
// ExprTime inline.
func (c IdentityClaims) IsExpired(now time.Time) bool {
	return now.Unix() > c.ExprTime
}

// Marshal encodes c as the canonical JSON object the ECIES envelope wraps.
func (c IdentityClaims) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes buf into an IdentityClaims.
func Unmarshal(buf []byte) (IdentityClaims, error) {
	var c IdentityClaims
	if err := json.Unmarshal(buf, &c); err != nil {
		return IdentityClaims{}, err
	}
	return c, nil
}
