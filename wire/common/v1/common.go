// Package commonv1 hand-implements the wire types generated from
// common.proto. See the package doc in wire/wireutil for why these are
// hand-written instead of protoc-generated.
package commonv1

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/actor-rtc/actrix-core/authcred"
	"github.com/actor-rtc/actrix-core/wire/wireutil"
)

// NonceCredential mirrors common.proto's NonceCredential message.
type NonceCredential struct {
	Timestamp int64
	Nonce     string
	Signature string
}

// FromCredential converts an authcred.Credential into its wire form.
func FromCredential(c authcred.Credential) *NonceCredential {
	return &NonceCredential{Timestamp: c.Timestamp, Nonce: c.Nonce, Signature: c.Signature}
}

// ToCredential converts the wire form back into an authcred.Credential.
func (m *NonceCredential) ToCredential() authcred.Credential {
	if m == nil {
		return authcred.Credential{}
	}
	return authcred.Credential{Timestamp: m.Timestamp, Nonce: m.Nonce, Signature: m.Signature}
}

// Marshal encodes m per common.proto's field numbering.
func (m *NonceCredential) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendInt64Field(b, 1, m.Timestamp)
	b = wireutil.AppendStringField(b, 2, m.Nonce)
	b = wireutil.AppendStringField(b, 3, m.Signature)
	return b
}

// Unmarshal decodes buf into m, which must be non-nil.
func (m *NonceCredential) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.Timestamp = int64(varint)
		case 2:
			m.Nonce = string(value)
		case 3:
			m.Signature = string(value)
		}
		return nil
	})
}
