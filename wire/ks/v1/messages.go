// Package ksv1 hand-implements the wire types and gRPC service descriptor
// generated from ks.proto. See wire/wireutil for why these are hand-written.
package ksv1

import (
	"google.golang.org/protobuf/encoding/protowire"

	commonv1 "github.com/actor-rtc/actrix-core/wire/common/v1"
	"github.com/actor-rtc/actrix-core/wire/wireutil"
)

// GenerateKeyRequest mirrors ks.proto's GenerateKeyRequest.
type GenerateKeyRequest struct {
	Credential *commonv1.NonceCredential
}

func (m *GenerateKeyRequest) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	if m.Credential != nil {
		b = wireutil.AppendMessageField(b, 1, m.Credential.Marshal())
	}
	return b
}

// GetCredential returns m.Credential, or nil for a nil receiver.
func (m *GenerateKeyRequest) GetCredential() *commonv1.NonceCredential {
	if m == nil {
		return nil
	}
	return m.Credential
}

func (m *GenerateKeyRequest) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		if num == 1 {
			cred := &commonv1.NonceCredential{}
			if err := cred.Unmarshal(value); err != nil {
				return err
			}
			m.Credential = cred
		}
		return nil
	})
}

// GenerateKeyResponse mirrors ks.proto's GenerateKeyResponse.
type GenerateKeyResponse struct {
	KeyID     uint32
	PublicKey []byte
	ExpiresAt int64
}

func (m *GenerateKeyResponse) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendUint32Field(b, 1, m.KeyID)
	b = wireutil.AppendBytesField(b, 2, m.PublicKey)
	b = wireutil.AppendInt64Field(b, 3, m.ExpiresAt)
	return b
}

func (m *GenerateKeyResponse) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.KeyID = uint32(varint)
		case 2:
			m.PublicKey = append([]byte(nil), value...)
		case 3:
			m.ExpiresAt = int64(varint)
		}
		return nil
	})
}

// GetSecretKeyRequest mirrors ks.proto's GetSecretKeyRequest.
type GetSecretKeyRequest struct {
	Credential *commonv1.NonceCredential
	KeyID      uint32
}

func (m *GetSecretKeyRequest) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	if m.Credential != nil {
		b = wireutil.AppendMessageField(b, 1, m.Credential.Marshal())
	}
	b = wireutil.AppendUint32Field(b, 2, m.KeyID)
	return b
}

// GetCredential returns m.Credential, or nil for a nil receiver.
func (m *GetSecretKeyRequest) GetCredential() *commonv1.NonceCredential {
	if m == nil {
		return nil
	}
	return m.Credential
}

// GetKeyID returns m.KeyID, or zero for a nil receiver.
func (m *GetSecretKeyRequest) GetKeyID() uint32 {
	if m == nil {
		return 0
	}
	return m.KeyID
}

func (m *GetSecretKeyRequest) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			cred := &commonv1.NonceCredential{}
			if err := cred.Unmarshal(value); err != nil {
				return err
			}
			m.Credential = cred
		case 2:
			m.KeyID = uint32(varint)
		}
		return nil
	})
}

// GetSecretKeyResponse mirrors ks.proto's GetSecretKeyResponse.
type GetSecretKeyResponse struct {
	KeyID             uint32
	SecretKey         []byte
	ExpiresAt         int64
	InTolerancePeriod bool
}

func (m *GetSecretKeyResponse) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendUint32Field(b, 1, m.KeyID)
	b = wireutil.AppendBytesField(b, 2, m.SecretKey)
	b = wireutil.AppendInt64Field(b, 3, m.ExpiresAt)
	b = wireutil.AppendBoolField(b, 4, m.InTolerancePeriod)
	return b
}

func (m *GetSecretKeyResponse) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.KeyID = uint32(varint)
		case 2:
			m.SecretKey = append([]byte(nil), value...)
		case 3:
			m.ExpiresAt = int64(varint)
		case 4:
			m.InTolerancePeriod = varint != 0
		}
		return nil
	})
}

// HealthCheckRequest mirrors ks.proto's HealthCheckRequest (empty).
type HealthCheckRequest struct{}

func (m *HealthCheckRequest) Marshal() []byte { return nil }
func (m *HealthCheckRequest) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		return nil
	})
}

// HealthCheckResponse mirrors ks.proto's HealthCheckResponse, with the
// Degraded/Detail fields supplementing the distilled spec per SPEC_FULL.md §4.11.
type HealthCheckResponse struct {
	Status    string
	Service   string
	Backend   string
	KeyCount  int64
	Timestamp int64
	Degraded  bool
	Detail    string
}

func (m *HealthCheckResponse) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendStringField(b, 1, m.Status)
	b = wireutil.AppendStringField(b, 2, m.Service)
	b = wireutil.AppendStringField(b, 3, m.Backend)
	b = wireutil.AppendInt64Field(b, 4, m.KeyCount)
	b = wireutil.AppendInt64Field(b, 5, m.Timestamp)
	b = wireutil.AppendBoolField(b, 6, m.Degraded)
	b = wireutil.AppendStringField(b, 7, m.Detail)
	return b
}

func (m *HealthCheckResponse) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.Status = string(value)
		case 2:
			m.Service = string(value)
		case 3:
			m.Backend = string(value)
		case 4:
			m.KeyCount = int64(varint)
		case 5:
			m.Timestamp = int64(varint)
		case 6:
			m.Degraded = varint != 0
		case 7:
			m.Detail = string(value)
		}
		return nil
	})
}
