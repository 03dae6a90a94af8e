package tinyble

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/leandrodaf/blemidi/internal/resolver"
	"github.com/leandrodaf/blemidi/sdk/contracts"
	"tinygo.org/x/bluetooth"
)

// readBufferSize covers the largest ATT value.
const readBufferSize = 512

// Peripheral is one connected peripheral. It implements contracts.Transport.
type Peripheral struct {
	handle contracts.PeripheralHandle
	device bluetooth.Device
	sink   NotifySink
	logger contracts.Logger

	mu    sync.Mutex
	chars map[uuid.UUID]bluetooth.DeviceCharacteristic
}

var _ contracts.Transport = (*Peripheral)(nil)

func newPeripheral(handle contracts.PeripheralHandle, device bluetooth.Device, sink NotifySink, logger contracts.Logger) *Peripheral {
	return &Peripheral{
		handle: handle,
		device: device,
		sink:   sink,
		logger: logger,
		chars:  map[uuid.UUID]bluetooth.DeviceCharacteristic{},
	}
}

// Handle returns the identity used to route this peripheral's notifications.
func (p *Peripheral) Handle() contracts.PeripheralHandle { return p.handle }

// Discover enumerates every service and characteristic of the peripheral.
// The host stack surfaces neither descriptors nor characteristic properties,
// so descriptors are left empty and the property flags unset.
func (p *Peripheral) Discover() ([]contracts.ServiceDescriptor, error) {
	services, err := p.device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services on %s: %w", p.handle, err)
	}

	out := make([]contracts.ServiceDescriptor, 0, len(services))
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			p.logger.Warn("characteristic discovery failed",
				p.logger.Field().String("peripheral", p.handle.String()),
				p.logger.Field().String("service", svc.UUID().String()),
				p.logger.Field().Error("error", err))
			out = append(out, contracts.ServiceDescriptor{UUID: svc.UUID().String()})
			continue
		}

		desc := contracts.ServiceDescriptor{UUID: svc.UUID().String()}
		for _, c := range chars {
			s := c.UUID().String()
			p.remember(s, c)
			desc.Characteristics = append(desc.Characteristics, contracts.CharacteristicDescriptor{UUID: s})
		}
		out = append(out, desc)
	}

	p.logger.Debug("GATT discovery complete",
		p.logger.Field().String("peripheral", p.handle.String()),
		p.logger.Field().Int("services", len(out)))
	return out, nil
}

func (p *Peripheral) remember(s string, c bluetooth.DeviceCharacteristic) {
	u, err := resolver.Parse(s)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chars[u] = c
}

func (p *Peripheral) lookup(characteristic contracts.CharacteristicDescriptor) (bluetooth.DeviceCharacteristic, error) {
	u, err := resolver.Parse(characteristic.UUID)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.chars[u]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", ErrUnknownCharacteristic, characteristic.UUID)
	}
	return c, nil
}

// SetNotifyEnabled subscribes to the characteristic. Payloads are passed to
// the sink on the stack's callback goroutine.
func (p *Peripheral) SetNotifyEnabled(characteristic contracts.CharacteristicDescriptor, enabled bool) error {
	c, err := p.lookup(characteristic)
	if err != nil {
		return err
	}
	if !enabled {
		return c.EnableNotifications(nil)
	}
	id := p.handle.ID
	return c.EnableNotifications(func(buf []byte) {
		payload := make([]byte, len(buf))
		copy(payload, buf)
		p.sink(id, payload)
	})
}

// WriteDescriptor is a no-op: enabling notifications already writes the
// client characteristic configuration.
func (p *Peripheral) WriteDescriptor(characteristic contracts.CharacteristicDescriptor, descriptor contracts.GattDescriptor, value []byte) error {
	p.logger.Debug("descriptor write handled by the host stack",
		p.logger.Field().String("characteristic", characteristic.UUID),
		p.logger.Field().String("descriptor", descriptor.UUID),
		p.logger.Field().Binary("value", value))
	return nil
}

// ReadCharacteristic reads the current value and hands it to the sink like
// a notification. BLE-MIDI peripherals answer with an empty packet.
func (p *Peripheral) ReadCharacteristic(characteristic contracts.CharacteristicDescriptor) error {
	c, err := p.lookup(characteristic)
	if err != nil {
		return err
	}
	buf := make([]byte, readBufferSize)
	n, err := c.Read(buf)
	if err != nil {
		return fmt.Errorf("read %s: %w", characteristic.UUID, err)
	}
	if n > 0 {
		p.sink(p.handle.ID, buf[:n])
	}
	return nil
}

// Disconnect closes the link.
func (p *Peripheral) Disconnect() error {
	if err := p.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", p.handle, err)
	}
	return nil
}
