package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leandrodaf/blemidi/sdk/contracts"
)

var (
	ErrServiceNotFound        = errors.New("MIDI service not found")
	ErrCharacteristicNotFound = errors.New("MIDI input characteristic not found")
)

// NotFoundError reports a failed lookup together with every UUID that was
// actually present, in discovery order.
type NotFoundError struct {
	Want      uuid.UUID
	Scope     string   // UUID of the enclosing service for characteristic lookups.
	Available []string // UUIDs exactly as supplied.
	kind      error
}

func (e *NotFoundError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%v: want %s in service %s; available: [%s]",
			e.kind, e.Want, e.Scope, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("%v: want %s; available: [%s]", e.kind, e.Want, strings.Join(e.Available, ", "))
}

// Is makes errors.Is match ErrServiceNotFound or ErrCharacteristicNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == e.kind
}

// FindMidiService returns the BLE-MIDI service among services.
func FindMidiService(services []contracts.ServiceDescriptor) (contracts.ServiceDescriptor, error) {
	for _, s := range services {
		if Matches(MidiServiceUUID, s.UUID) {
			return s, nil
		}
	}
	available := make([]string, len(services))
	for i, s := range services {
		available[i] = s.UUID
	}
	return contracts.ServiceDescriptor{}, &NotFoundError{
		Want:      MidiServiceUUID,
		Available: available,
		kind:      ErrServiceNotFound,
	}
}

// FindInputCharacteristic returns the BLE-MIDI data characteristic of service.
func FindInputCharacteristic(service contracts.ServiceDescriptor) (contracts.CharacteristicDescriptor, error) {
	for _, c := range service.Characteristics {
		if Matches(MidiIOCharacteristicUUID, c.UUID) {
			return c, nil
		}
	}
	available := make([]string, len(service.Characteristics))
	for i, c := range service.Characteristics {
		available[i] = c.UUID
	}
	return contracts.CharacteristicDescriptor{}, &NotFoundError{
		Want:      MidiIOCharacteristicUUID,
		Scope:     service.UUID,
		Available: available,
		kind:      ErrCharacteristicNotFound,
	}
}

// FindDescriptor returns the descriptor of characteristic matching want.
func FindDescriptor(characteristic contracts.CharacteristicDescriptor, want uuid.UUID) (contracts.GattDescriptor, bool) {
	for _, d := range characteristic.Descriptors {
		if Matches(want, d.UUID) {
			return d, true
		}
	}
	return contracts.GattDescriptor{}, false
}
