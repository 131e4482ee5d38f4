// Package actorid defines the ActorId value type: the immutable
// {realm_id, serial_number, type} triple assigned to an actor at registration.
package actorid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ActorType names the manufacturer/product pair an actor registers as.
type ActorType struct {
	Manufacturer string
	Name         string
}

// ActorId is immutable once issued. Its string form is
// "<mfg>:<name>@<sn_hex>:<realm>".
type ActorId struct {
	RealmID      uint32
	SerialNumber uint64
	Type         ActorType
}

// MaxSerialNumber is the largest serial number representable in 54 bits.
const MaxSerialNumber = (uint64(1) << 54) - 1

// New constructs an ActorId, rejecting realm 0 (reserved, "no realm") and any
// serial number outside the 54-bit range the generator promises.
func New(realmID uint32, serial uint64, actorType ActorType) (ActorId, error) {
	if realmID == 0 {
		return ActorId{}, errors.New("actorid: realm_id must be non-zero")
	}
	if serial > MaxSerialNumber {
		return ActorId{}, fmt.Errorf("actorid: serial_number %d exceeds 2^54-1", serial)
	}
	if strings.TrimSpace(actorType.Manufacturer) == "" || strings.TrimSpace(actorType.Name) == "" {
		return ActorId{}, errors.New("actorid: manufacturer and name must be non-empty")
	}
	return ActorId{RealmID: realmID, SerialNumber: serial, Type: actorType}, nil
}

// String renders the canonical "<mfg>:<name>@<sn_hex>:<realm>" form.
func (a ActorId) String() string {
	return fmt.Sprintf("%s:%s@%x:%d", a.Type.Manufacturer, a.Type.Name, a.SerialNumber, a.RealmID)
}

// Parse inverts String, turning the canonical literal form back into an
// ActorId.
func Parse(s string) (ActorId, error) {
	atIdx := strings.LastIndex(s, "@")
	if atIdx < 0 {
		return ActorId{}, fmt.Errorf("actorid: missing '@' separator in %q", s)
	}
	head, tail := s[:atIdx], s[atIdx+1:]

	colonIdx := strings.Index(head, ":")
	if colonIdx < 0 {
		return ActorId{}, fmt.Errorf("actorid: missing manufacturer/name separator in %q", s)
	}
	mfg, name := head[:colonIdx], head[colonIdx+1:]

	tailColon := strings.LastIndex(tail, ":")
	if tailColon < 0 {
		return ActorId{}, fmt.Errorf("actorid: missing serial/realm separator in %q", s)
	}
	snHex, realmStr := tail[:tailColon], tail[tailColon+1:]

	sn, err := strconv.ParseUint(snHex, 16, 64)
	if err != nil {
		return ActorId{}, fmt.Errorf("actorid: invalid serial number hex %q: %w", snHex, err)
	}
	realm, err := strconv.ParseUint(realmStr, 10, 32)
	if err != nil {
		return ActorId{}, fmt.Errorf("actorid: invalid realm_id %q: %w", realmStr, err)
	}

	return New(uint32(realm), sn, ActorType{Manufacturer: mfg, Name: name})
}
