package crypto

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairRoundTrip(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Len(t, sk.Bytes(), PrivateKeySize)
	require.Len(t, pk.Bytes(), PublicKeySize)

	sk2, err := PrivateKeyFromBytes(sk.Bytes())
	require.NoError(t, err)
	require.Equal(t, sk.Bytes(), sk2.Bytes())

	pk2, err := PublicKeyFromBytes(pk.Bytes())
	require.NoError(t, err)
	require.Equal(t, pk.Bytes(), pk2.Bytes())
}

func TestKeyEncryptorSealOpenRoundTrip(t *testing.T) {
	enc, err := ResolveKEK(KekSource{Direct: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	require.False(t, enc.IsNoop())

	secret := []byte("a 32 byte secp256k1 scalar!!!!!")
	sealed, err := enc.Seal(secret)
	require.NoError(t, err)
	require.False(t, bytes.Equal(sealed, secret))

	opened, err := enc.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, secret, opened)
}

func TestKeyEncryptorNonDeterministic(t *testing.T) {
	enc, err := ResolveKEK(KekSource{Direct: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)

	secret := []byte("same plaintext every time")
	a, err := enc.Seal(secret)
	require.NoError(t, err)
	b, err := enc.Seal(secret)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestKeyEncryptorNoopMode(t *testing.T) {
	enc, err := ResolveKEK(KekSource{AllowNoKEK: true})
	require.NoError(t, err)
	require.True(t, enc.IsNoop())

	secret := []byte("stored verbatim")
	sealed, err := enc.Seal(secret)
	require.NoError(t, err)
	require.Equal(t, secret, sealed)
}

func TestResolveKEKPrecedence(t *testing.T) {
	t.Setenv("TEST_ACTRIX_KEK", "0101010101010101010101010101010101010101010101010101010101010101"[:64])

	dir := t.TempDir()
	filePath := dir + "/kek.hex"
	fileHex := "0202020202020202020202020202020202020202020202020202020202020202"[:64]
	require.NoError(t, os.WriteFile(filePath, []byte(fileHex), 0o600))

	enc, err := ResolveKEK(KekSource{
		Direct:   "0303030303030303030303030303030303030303030303030303030303030303"[:64],
		EnvVar:   "TEST_ACTRIX_KEK",
		FilePath: filePath,
	})
	require.NoError(t, err)

	fileEnc, _ := newKeyEncryptor(fileHex)
	require.Equal(t, fileEnc.key, enc.key, "file must win over env and direct")
}

func TestResolveKEKNoSourceFailsClosed(t *testing.T) {
	_, err := ResolveKEK(KekSource{})
	require.Error(t, err)
}

func TestEciesRoundTrip(t *testing.T) {
	sk, pk, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte(`{"realm_id":1001,"actor_id":"test:device@1:1001","expr_time":99999,"psk":"cHNr"}`)
	envelope, err := EciesEncrypt(pk, msg)
	require.NoError(t, err)

	plaintext, err := EciesDecrypt(sk, envelope)
	require.NoError(t, err)
	require.Equal(t, msg, plaintext)
}

func TestEciesCiphertextsAreNonDeterministic(t *testing.T) {
	_, pk, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("identical plaintext")
	a, err := EciesEncrypt(pk, msg)
	require.NoError(t, err)
	b, err := EciesEncrypt(pk, msg)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestEciesWrongKeyFails(t *testing.T) {
	_, pk, err := GenerateKeyPair()
	require.NoError(t, err)
	other, _, err := GenerateKeyPair()
	require.NoError(t, err)

	envelope, err := EciesEncrypt(pk, []byte("secret"))
	require.NoError(t, err)

	_, err = EciesDecrypt(other, envelope)
	require.Error(t, err)
}
