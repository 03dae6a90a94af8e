//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/blemidi/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI destination handling.
var (
	ErrNoMIDIDestinations     = errors.New("no MIDI destinations found")
	ErrInvalidMIDIDestination = errors.New("invalid MIDI destination")
	ErrCreateOutputPort       = errors.New("error creating output port")
)

// Output forwards decoded BLE-MIDI events to a CoreMIDI destination.
type Output struct {
	logger   contracts.Logger
	client   coremidi.Client     // CoreMIDI client instance.
	port     coremidi.OutputPort // Output port events are sent through.
	mu       sync.Mutex          // Guards destination and stopped.
	dest     *coremidi.Destination
	stopped  bool
	stopOnce sync.Once // Ensures Stop() is executed only once.
}

// NewMIDIOutput creates the CoreMIDI client and its output port.
func NewMIDIOutput(options *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	port, err := coremidi.NewOutputPort(client, "Output Port")
	if err != nil {
		options.Logger.Error(ErrCreateOutputPort.Error(), options.Logger.Field().Error("error", err))
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	options.Logger.Info("MIDI output successfully created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName))

	return &Output{
		logger: options.Logger,
		client: client,
		port:   port,
	}, nil
}

// ListDestinations retrieves the available MIDI destinations.
func (m *Output) ListDestinations() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(destinations) == 0 {
		m.logger.Warn(ErrNoMIDIDestinations.Error())
		return nil, ErrNoMIDIDestinations
	}

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, destination := range destinations {
		entity := destination.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDestination routes subsequent events to the destination at deviceID.
func (m *Output) SelectDestination(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	if deviceID < 0 || deviceID >= len(destinations) {
		m.logger.Error(ErrInvalidMIDIDestination.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDestination
	}

	dest := destinations[deviceID]
	m.dest = &dest
	m.stopped = false
	m.logger.Info("MIDI destination selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", dest.Name()))
	return nil
}

// OnMidiEvent sends ev to the selected destination. A zero CoreMIDI
// timestamp schedules the packet immediately.
func (m *Output) OnMidiEvent(peripheral contracts.PeripheralHandle, ev contracts.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.dest == nil {
		return
	}
	packet := coremidi.NewPacket(ev.Bytes(), 0)
	if err := packet.Send(&m.port, m.dest); err != nil {
		m.logger.Warn("failed to send MIDI packet",
			m.logger.Field().String("peripheral", peripheral.String()),
			m.logger.Field().String("kind", ev.Kind.String()),
			m.logger.Field().Error("error", err))
	}
}

// Stop releases the destination. Later events are discarded.
func (m *Output) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopped = true
		m.dest = nil
		m.logger.Info("MIDI output stopped")
	})
	return nil
}
