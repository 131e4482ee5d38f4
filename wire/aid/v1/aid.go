// Package aidv1 hand-implements the wire types generated from aid.proto.
package aidv1

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/actor-rtc/actrix-core/wire/wireutil"
)

// ActorType mirrors aid.proto's ActorType.
type ActorType struct {
	Manufacturer string
	Name         string
}

func (m *ActorType) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendStringField(b, 1, m.Manufacturer)
	b = wireutil.AppendStringField(b, 2, m.Name)
	return b
}

func (m *ActorType) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.Manufacturer = string(value)
		case 2:
			m.Name = string(value)
		}
		return nil
	})
}

// Realm mirrors aid.proto's Realm.
type Realm struct {
	RealmID uint32
}

func (m *Realm) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendUint32Field(b, 1, m.RealmID)
	return b
}

func (m *Realm) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		if num == 1 {
			m.RealmID = uint32(varint)
		}
		return nil
	})
}

// ActorId mirrors aid.proto's ActorId message (distinct from the Go domain
// type actorid.ActorId; the conversion lives in aishttp's register handler).
type ActorId struct {
	RealmID      uint32
	SerialNumber uint64
	Type         *ActorType
}

func (m *ActorId) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendUint32Field(b, 1, m.RealmID)
	b = wireutil.AppendUint64Field(b, 2, m.SerialNumber)
	if m.Type != nil {
		b = wireutil.AppendMessageField(b, 3, m.Type.Marshal())
	}
	return b
}

func (m *ActorId) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.RealmID = uint32(varint)
		case 2:
			m.SerialNumber = varint
		case 3:
			t := &ActorType{}
			if err := t.Unmarshal(value); err != nil {
				return err
			}
			m.Type = t
		}
		return nil
	})
}

// AIdCredential mirrors aid.proto's AIdCredential — the opaque credential
// object the client presents to downstream services.
type AIdCredential struct {
	TokenKeyID     uint32
	EncryptedToken []byte
}

func (m *AIdCredential) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendUint32Field(b, 1, m.TokenKeyID)
	b = wireutil.AppendBytesField(b, 2, m.EncryptedToken)
	return b
}

func (m *AIdCredential) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.TokenKeyID = uint32(varint)
		case 2:
			m.EncryptedToken = append([]byte(nil), value...)
		}
		return nil
	})
}

// RegisterRequest mirrors aid.proto's RegisterRequest.
type RegisterRequest struct {
	ActrType    *ActorType
	Realm       *Realm
	ServiceSpec string
	Acl         []string
}

func (m *RegisterRequest) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	if m.ActrType != nil {
		b = wireutil.AppendMessageField(b, 1, m.ActrType.Marshal())
	}
	if m.Realm != nil {
		b = wireutil.AppendMessageField(b, 2, m.Realm.Marshal())
	}
	b = wireutil.AppendStringField(b, 3, m.ServiceSpec)
	for _, a := range m.Acl {
		b = wireutil.AppendStringField(b, 4, a)
	}
	return b
}

func (m *RegisterRequest) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			t := &ActorType{}
			if err := t.Unmarshal(value); err != nil {
				return err
			}
			m.ActrType = t
		case 2:
			r := &Realm{}
			if err := r.Unmarshal(value); err != nil {
				return err
			}
			m.Realm = r
		case 3:
			m.ServiceSpec = string(value)
		case 4:
			m.Acl = append(m.Acl, string(value))
		}
		return nil
	})
}

// RegisterOk mirrors aid.proto's RegisterOk, the success arm of the
// RegisterResponse oneof.
type RegisterOk struct {
	ActorId                        *ActorId
	Credential                     *AIdCredential
	Psk                            []byte
	CredentialExpiresAt            int64
	SignalingHeartbeatIntervalSecs int32
}

func (m *RegisterOk) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	if m.ActorId != nil {
		b = wireutil.AppendMessageField(b, 1, m.ActorId.Marshal())
	}
	if m.Credential != nil {
		b = wireutil.AppendMessageField(b, 2, m.Credential.Marshal())
	}
	b = wireutil.AppendBytesField(b, 3, m.Psk)
	b = wireutil.AppendInt64Field(b, 4, m.CredentialExpiresAt)
	b = wireutil.AppendUint32Field(b, 5, uint32(m.SignalingHeartbeatIntervalSecs))
	return b
}

func (m *RegisterOk) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			a := &ActorId{}
			if err := a.Unmarshal(value); err != nil {
				return err
			}
			m.ActorId = a
		case 2:
			c := &AIdCredential{}
			if err := c.Unmarshal(value); err != nil {
				return err
			}
			m.Credential = c
		case 3:
			m.Psk = append([]byte(nil), value...)
		case 4:
			m.CredentialExpiresAt = int64(varint)
		case 5:
			m.SignalingHeartbeatIntervalSecs = int32(varint)
		}
		return nil
	})
}

// RegisterError mirrors aid.proto's RegisterError, the failure arm of the
// RegisterResponse oneof.
type RegisterError struct {
	Code    int32
	Message string
}

func (m *RegisterError) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = wireutil.AppendInt64Field(b, 1, int64(m.Code))
	b = wireutil.AppendStringField(b, 2, m.Message)
	return b
}

func (m *RegisterError) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			m.Code = int32(varint)
		case 2:
			m.Message = string(value)
		}
		return nil
	})
}

// RegisterResponse mirrors aid.proto's RegisterResponse oneof{ok, error}.
// Exactly one of Ok/Error should be non-nil; the AIS HTTP boundary always
// sets one of them, never both, per spec §7's in-band-error contract.
type RegisterResponse struct {
	Ok    *RegisterOk
	Error *RegisterError
}

func (m *RegisterResponse) Marshal() []byte {
	if m == nil {
		return nil
	}
	var b []byte
	if m.Ok != nil {
		b = wireutil.AppendMessageField(b, 1, m.Ok.Marshal())
	} else if m.Error != nil {
		b = wireutil.AppendMessageField(b, 2, m.Error.Marshal())
	}
	return b
}

func (m *RegisterResponse) Unmarshal(buf []byte) error {
	return wireutil.Walk(buf, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch num {
		case 1:
			ok := &RegisterOk{}
			if err := ok.Unmarshal(value); err != nil {
				return err
			}
			m.Ok = ok
		case 2:
			errMsg := &RegisterError{}
			if err := errMsg.Unmarshal(value); err != nil {
				return err
			}
			m.Error = errMsg
		}
		return nil
	})
}
