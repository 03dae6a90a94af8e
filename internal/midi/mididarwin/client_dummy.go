//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/blemidi/sdk/contracts"
)

var errUnavailable = errors.New("CoreMIDI output is not available on this platform")

type DummyMIDIOutput struct {
	logger contracts.Logger
}

func NewMIDIOutput(options *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	options.Logger.Info("Using dummy MIDI output for non-macOS system")
	return &DummyMIDIOutput{
		logger: options.Logger,
	}, nil
}

func (m *DummyMIDIOutput) ListDestinations() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDestinations called on dummy MIDI output")
	return nil, errUnavailable
}

func (m *DummyMIDIOutput) SelectDestination(deviceID int) error {
	m.logger.Warn("SelectDestination called on dummy MIDI output")
	return errUnavailable
}

func (m *DummyMIDIOutput) OnMidiEvent(contracts.PeripheralHandle, contracts.Event) {}

func (m *DummyMIDIOutput) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI output")
	return nil
}
