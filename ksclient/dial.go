// Package ksclient wraps the hand-written ks/v1 gRPC client with typed
// helpers, grounded on the teacher's sdk/consensus client shape. TLS
// credential loading is dropped: TLS termination is explicitly out of scope
// (spec.md's Non-goals name it) and every KS deployment in this module's
// topology runs behind a transport the operator secures independently.
package ksclient

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOption configures the underlying gRPC dial behaviour.
type DialOption interface {
	apply(*dialConfig)
}

type dialOptionFunc func(*dialConfig)

func (f dialOptionFunc) apply(cfg *dialConfig) { f(cfg) }

type dialConfig struct {
	transport credentials.TransportCredentials
	extra     []grpc.DialOption
}

// WithTransportCredentials configures the client to use the provided gRPC
// transport credentials.
func WithTransportCredentials(creds credentials.TransportCredentials) DialOption {
	return dialOptionFunc(func(cfg *dialConfig) { cfg.transport = creds })
}

// WithInsecure enables plaintext gRPC connections. The default: KS
// connections in this module run over a trusted internal network or an
// externally terminated transport.
func WithInsecure() DialOption {
	return dialOptionFunc(func(cfg *dialConfig) { cfg.transport = insecure.NewCredentials() })
}

// WithContextDialer attaches a custom context-based dialer, used in tests to
// connect over an in-memory listener.
func WithContextDialer(dialer func(context.Context, string) (net.Conn, error)) DialOption {
	return dialOptionFunc(func(cfg *dialConfig) { cfg.extra = append(cfg.extra, grpc.WithContextDialer(dialer)) })
}

// WithPerRPCCredentials attaches per-RPC credential authenticators.
func WithPerRPCCredentials(creds credentials.PerRPCCredentials) DialOption {
	return dialOptionFunc(func(cfg *dialConfig) { cfg.extra = append(cfg.extra, grpc.WithPerRPCCredentials(creds)) })
}

// WithDialOptions forwards arbitrary gRPC dial options to the connector.
func WithDialOptions(opts ...grpc.DialOption) DialOption {
	return dialOptionFunc(func(cfg *dialConfig) { cfg.extra = append(cfg.extra, opts...) })
}

// resolve builds the final grpc.DialOption slice, defaulting to plaintext
// when no transport credentials were supplied.
func resolve(opts ...DialOption) []grpc.DialOption {
	cfg := dialConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	if cfg.transport == nil {
		cfg.transport = insecure.NewCredentials()
	}
	dialOpts := make([]grpc.DialOption, 0, len(cfg.extra)+1)
	dialOpts = append(dialOpts, grpc.WithTransportCredentials(cfg.transport))
	dialOpts = append(dialOpts, cfg.extra...)
	return dialOpts
}
