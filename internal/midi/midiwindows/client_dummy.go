//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/blemidi/sdk/contracts"
)

var errUnavailable = errors.New("winmm output is not available on this platform")

type dummyMIDIOutput struct {
	logger contracts.Logger
}

// NewMIDIOutput initializes a dummy MIDI output for non-Windows systems.
func NewMIDIOutput(options *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	options.Logger.Info("Using dummy MIDI output for non-Windows system")
	return &dummyMIDIOutput{
		logger: options.Logger,
	}, nil
}

func (m *dummyMIDIOutput) ListDestinations() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDestinations called on dummy MIDI output")
	return nil, errUnavailable
}

func (m *dummyMIDIOutput) SelectDestination(deviceID int) error {
	m.logger.Warn("SelectDestination called on dummy MIDI output")
	return errUnavailable
}

func (m *dummyMIDIOutput) OnMidiEvent(contracts.PeripheralHandle, contracts.Event) {}

func (m *dummyMIDIOutput) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI output")
	return nil
}
