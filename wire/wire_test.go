package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	aidv1 "github.com/actor-rtc/actrix-core/wire/aid/v1"
	commonv1 "github.com/actor-rtc/actrix-core/wire/common/v1"
	ksv1 "github.com/actor-rtc/actrix-core/wire/ks/v1"
)

func TestNonceCredentialRoundTrip(t *testing.T) {
	in := &commonv1.NonceCredential{Timestamp: 1234567890, Nonce: "deadbeef", Signature: "abc123"}
	buf := in.Marshal()

	out := &commonv1.NonceCredential{}
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, in, out)
}

func TestGenerateKeyRoundTrip(t *testing.T) {
	req := &ksv1.GenerateKeyRequest{
		Credential: &commonv1.NonceCredential{Timestamp: 1, Nonce: "n", Signature: "s"},
	}
	buf := req.Marshal()
	out := &ksv1.GenerateKeyRequest{}
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, req, out)

	resp := &ksv1.GenerateKeyResponse{KeyID: 7, PublicKey: []byte{1, 2, 3}, ExpiresAt: 99}
	buf = resp.Marshal()
	out2 := &ksv1.GenerateKeyResponse{}
	require.NoError(t, out2.Unmarshal(buf))
	require.Equal(t, resp, out2)
}

func TestGetSecretKeyRoundTrip(t *testing.T) {
	req := &ksv1.GetSecretKeyRequest{
		Credential: &commonv1.NonceCredential{Timestamp: 2, Nonce: "nn", Signature: "ss"},
		KeyID:      42,
	}
	buf := req.Marshal()
	out := &ksv1.GetSecretKeyRequest{}
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, req, out)

	resp := &ksv1.GetSecretKeyResponse{KeyID: 42, SecretKey: []byte("sk"), ExpiresAt: 123, InTolerancePeriod: true}
	buf = resp.Marshal()
	out2 := &ksv1.GetSecretKeyResponse{}
	require.NoError(t, out2.Unmarshal(buf))
	require.Equal(t, resp, out2)
}

func TestHealthCheckRoundTrip(t *testing.T) {
	resp := &ksv1.HealthCheckResponse{
		Status: "healthy", Service: "ks", Backend: "sqlite",
		KeyCount: 3, Timestamp: 555, Degraded: true, Detail: "slow backend",
	}
	buf := resp.Marshal()
	out := &ksv1.HealthCheckResponse{}
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, resp, out)
}

func TestRegisterRequestResponseRoundTrip(t *testing.T) {
	req := &aidv1.RegisterRequest{
		ActrType:    &aidv1.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
		Realm:       &aidv1.Realm{RealmID: 1001},
		ServiceSpec: "turn",
		Acl:         []string{"read", "write"},
	}
	buf := req.Marshal()
	out := &aidv1.RegisterRequest{}
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, req, out)

	okResp := &aidv1.RegisterResponse{
		Ok: &aidv1.RegisterOk{
			ActorId: &aidv1.ActorId{
				RealmID:      1001,
				SerialNumber: 42,
				Type:         &aidv1.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
			},
			Credential:                     &aidv1.AIdCredential{TokenKeyID: 1, EncryptedToken: []byte{9, 9, 9}},
			Psk:                            []byte("32-byte-psk-placeholder-value!!"),
			CredentialExpiresAt:            1717171717,
			SignalingHeartbeatIntervalSecs: 30,
		},
	}
	buf = okResp.Marshal()
	out2 := &aidv1.RegisterResponse{}
	require.NoError(t, out2.Unmarshal(buf))
	require.Equal(t, okResp, out2)
	require.Nil(t, out2.Error)

	errResp := &aidv1.RegisterResponse{Error: &aidv1.RegisterError{Code: 403, Message: "realm mismatch"}}
	buf = errResp.Marshal()
	out3 := &aidv1.RegisterResponse{}
	require.NoError(t, out3.Unmarshal(buf))
	require.Equal(t, errResp, out3)
	require.Nil(t, out3.Ok)
}
