// Package wireutil provides small helpers on top of
// google.golang.org/protobuf/encoding/protowire for hand-written message
// types that need to round-trip through the protobuf wire format without a
// generated .pb.go file. Each message package in wire/ uses these helpers to
// implement Marshal/Unmarshal by hand, against a .proto file kept alongside
// it as the schema of record.
package wireutil

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// AppendStringField appends a string field including its tag, only when v is
// non-empty (proto3 default-omission).
func AppendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendBytesField appends a bytes field including its tag, only when v is
// non-empty.
func AppendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendUint32Field appends a varint-encoded uint32 field, only when v != 0.
func AppendUint32Field(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// AppendUint64Field appends a varint-encoded uint64 field, only when v != 0.
func AppendUint64Field(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendInt64Field appends a zig-zag-free varint-encoded int64 field (proto3
// "int64", not "sint64"), only when v != 0.
func AppendInt64Field(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// AppendBoolField appends a varint-encoded bool field, only when v is true.
func AppendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	if v {
		return protowire.AppendVarint(b, 1)
	}
	return protowire.AppendVarint(b, 0)
}

// AppendMessageField appends an embedded-message field from its already
// marshaled bytes, only when non-empty.
func AppendMessageField(b []byte, num protowire.Number, marshaled []byte) []byte {
	if len(marshaled) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, marshaled)
}

// Field is a (number, wire-type, raw-value) tuple. Walk does not produce
// Field values; it passes the decoded parts to its callback directly.
type Field struct {
	Number protowire.Number
	Type   protowire.Type
	Raw    []byte // varint: the raw field content re-encoded as bytes is not used; see Walk
}

// Walk decodes every top-level field in buf and invokes fn with the field
// number, wire type, and the already-decoded value: the payload in value for
// length-delimited fields, the integer in varint for varint fields. Walk
// advances past each field itself, so fn consumes nothing. Fixed32, fixed64
// and any other wire types are skipped without calling fn.
func Walk(buf []byte, fn func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(buf) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(buf)
		if tagLen < 0 {
			return fmt.Errorf("wireutil: invalid tag: %w", protowire.ParseError(tagLen))
		}
		buf = buf[tagLen:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("wireutil: invalid varint: %w", protowire.ParseError(n))
			}
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
			buf = buf[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("wireutil: invalid bytes: %w", protowire.ParseError(n))
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			buf = buf[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(buf)
			if n < 0 {
				return fmt.Errorf("wireutil: invalid fixed32: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return fmt.Errorf("wireutil: invalid fixed64: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("wireutil: invalid field: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}
