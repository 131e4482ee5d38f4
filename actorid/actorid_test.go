package actorid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorIdStringRoundTrip(t *testing.T) {
	id, err := New(1001, 0x2a, ActorType{Manufacturer: "test-manufacturer", Name: "test-device"})
	require.NoError(t, err)
	require.Equal(t, "test-manufacturer:test-device@2a:1001", id.String())

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestActorIdRejectsZeroRealm(t *testing.T) {
	_, err := New(0, 1, ActorType{Manufacturer: "m", Name: "n"})
	require.Error(t, err)
}

func TestActorIdRejectsOversizedSerial(t *testing.T) {
	_, err := New(1, MaxSerialNumber+1, ActorType{Manufacturer: "m", Name: "n"})
	require.Error(t, err)
}

func TestActorIdParseRejectsMalformed(t *testing.T) {
	cases := []string{"", "no-at-sign", "mfg@sn", "mfg:name@sn-no-realm"}
	for _, c := range cases {
		_, err := Parse(c)
		require.Error(t, err, c)
	}
}
