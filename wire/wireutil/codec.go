package wireutil

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Message is implemented by every hand-written wire type in wire/*/v1. It
// lets the gRPC codec below work with these types without requiring the full
// google.golang.org/protobuf proto.Message interface (which hand-written
// structs don't implement — there's no generated reflection/descriptor
// info).
type Message interface {
	Marshal() []byte
	Unmarshal([]byte) error
}

// grpcCodec implements grpc/encoding.Codec against Message instead of
// proto.Message. It registers itself under the name "proto" — the default
// content-subtype grpc-go negotiates when none is set — so grpc.NewServer
// and grpc.ClientConn.Invoke use it automatically without callers needing to
// set a per-call CallContentSubtype.
type grpcCodec struct{}

func (grpcCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wireutil: %T does not implement wireutil.Message", v)
	}
	return m.Marshal(), nil
}

func (grpcCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wireutil: %T does not implement wireutil.Message", v)
	}
	return m.Unmarshal(data)
}

func (grpcCodec) Name() string { return "proto" }

func init() {
	// Overrides the default "proto" codec (normally backed by
	// google.golang.org/protobuf's proto.Marshal/Unmarshal) so that every
	// grpc.NewServer/grpc.Dial in this module transparently speaks the
	// hand-written wire format without per-call configuration.
	encoding.RegisterCodec(grpcCodec{})
}
