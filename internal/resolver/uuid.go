// Package resolver locates the BLE-MIDI service and its data characteristic
// among the GATT entities a peripheral exposes.
package resolver

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth base UUID that short UUIDs are expanded into.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

var (
	// MidiServiceUUID is the BLE-MIDI service.
	MidiServiceUUID = uuid.MustParse("03b80e5a-ede8-4b33-a751-6ce34ec4c700")
	// MidiIOCharacteristicUUID is the BLE-MIDI data I/O characteristic.
	MidiIOCharacteristicUUID = uuid.MustParse("7772e5db-3868-4112-a1a9-f2669d106bf3")
	// ClientCharacteristicConfigUUID is the CCCD (0x2902).
	ClientCharacteristicConfigUUID = FromShort(0x2902)
)

// FromShort expands a 16 or 32-bit assigned number into a 128-bit UUID.
func FromShort(v uint32) uuid.UUID {
	u := BaseUUID
	u[0] = byte(v >> 24)
	u[1] = byte(v >> 16)
	u[2] = byte(v >> 8)
	u[3] = byte(v)
	return u
}

// Parse normalizes a UUID string. It accepts 4 or 8 hex digit short forms
// (optionally prefixed with 0x) and every 128-bit form uuid.Parse accepts,
// in any letter case.
func Parse(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	short := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(short) == 4 || len(short) == 8 {
		b, err := hex.DecodeString(short)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid short UUID %q: %w", s, err)
		}
		var v uint32
		for _, x := range b {
			v = v<<8 | uint32(x)
		}
		return FromShort(v), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return u, nil
}

// Matches reports whether s denotes want. Unparseable strings never match.
func Matches(want uuid.UUID, s string) bool {
	u, err := Parse(s)
	return err == nil && u == want
}
