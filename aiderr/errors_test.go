package aiderr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		msg  string
		want int
	}{
		{KindInvalidFormat, "", http.StatusBadRequest},
		{KindInvalidPrefix, "", http.StatusBadRequest},
		{KindEmptyID, "", http.StatusBadRequest},
		{KindInvalidTimestamp, "", http.StatusBadRequest},
		{KindBase64Decode, "", http.StatusBadRequest},
		{KindHexDecode, "", http.StatusBadRequest},
		{KindExpired, "", http.StatusUnauthorized},
		{KindRealmError, "", http.StatusForbidden},
		{KindGenerationFailed, "KS unavailable, key expired", http.StatusServiceUnavailable},
		{KindGenerationFailed, "unexpected internal failure", http.StatusInternalServerError},
		{KindDecryptionFailed, "", http.StatusInternalServerError},
		{KindEciesError, "", http.StatusInternalServerError},
		{KindJSONSerialization, "", http.StatusInternalServerError},
		{KindDuplicateNonce, "", http.StatusUnauthorized},
		{KindTimestampOutOfWindow, "", http.StatusUnauthorized},
		{KindInvalidSignature, "", http.StatusUnauthorized},
		{KindNotFound, "", http.StatusNotFound},
		{KindInternal, "", http.StatusInternalServerError},
	}
	for _, c := range cases {
		err := New(c.kind, c.msg)
		require.Equal(t, c.want, HTTPStatus(err), c.kind.String())
	}
}

func TestHTTPStatusNonAidErrorDefaultsInternal(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain error")))
}

func TestOfKindMatchesWrapped(t *testing.T) {
	inner := errors.New("boom")
	wrapped := Wrap(KindInternal, "storage failure", inner)
	require.True(t, OfKind(wrapped, KindInternal))
	require.False(t, OfKind(wrapped, KindNotFound))
	require.ErrorIs(t, wrapped, inner)
}

func TestIsKSUnavailable(t *testing.T) {
	require.True(t, IsKSUnavailable(New(KindGenerationFailed, "KS unavailable, key expired")))
	require.False(t, IsKSUnavailable(New(KindGenerationFailed, "json encode error")))
	require.False(t, IsKSUnavailable(New(KindInternal, "KS unavailable")))
}
