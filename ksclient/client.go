package ksclient

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/actor-rtc/actrix-core/authcred"
	commonv1 "github.com/actor-rtc/actrix-core/wire/common/v1"
	ksv1 "github.com/actor-rtc/actrix-core/wire/ks/v1"
)

// Client wraps ksv1.KeyServerClient with typed helpers that build and sign
// the credential for each RPC, so callers (the AIS issuer, the validator)
// never touch authcred directly.
type Client struct {
	conn   *grpc.ClientConn
	raw    ksv1.KeyServerClient
	secret []byte
}

// Dial connects to a KS instance at target.
func Dial(ctx context.Context, target string, secret []byte, opts ...DialOption) (*Client, error) {
	conn, err := grpc.DialContext(ctx, target, resolve(opts...)...)
	if err != nil {
		return nil, err
	}
	return New(conn, secret), nil
}

// New wraps an existing gRPC connection.
func New(conn *grpc.ClientConn, secret []byte) *Client {
	return &Client{conn: conn, raw: ksv1.NewKeyServerClient(conn), secret: secret}
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Raw exposes the underlying generated client for advanced use.
func (c *Client) Raw() ksv1.KeyServerClient {
	if c == nil {
		return nil
	}
	return c.raw
}

// GenerateKey signs and issues a GenerateKey RPC.
func (c *Client) GenerateKey(ctx context.Context) (*ksv1.GenerateKeyResponse, error) {
	cred, err := authcred.Build(c.secret, authcred.PayloadGenerateKey(), nil)
	if err != nil {
		return nil, err
	}
	return c.raw.GenerateKey(ctx, &ksv1.GenerateKeyRequest{Credential: commonv1.FromCredential(cred)})
}

// GetSecretKey signs and issues a GetSecretKey RPC for keyID.
func (c *Client) GetSecretKey(ctx context.Context, keyID uint32) (*ksv1.GetSecretKeyResponse, error) {
	cred, err := authcred.Build(c.secret, authcred.PayloadGetSecretKey(keyID), nil)
	if err != nil {
		return nil, err
	}
	return c.raw.GetSecretKey(ctx, &ksv1.GetSecretKeyRequest{Credential: commonv1.FromCredential(cred), KeyID: keyID})
}

// HealthCheck issues an unauthenticated HealthCheck RPC with a fixed timeout.
func (c *Client) HealthCheck(ctx context.Context, timeout time.Duration) (*ksv1.HealthCheckResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.raw.HealthCheck(ctx, &ksv1.HealthCheckRequest{})
}
