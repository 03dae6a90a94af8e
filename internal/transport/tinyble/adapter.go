// Package tinyble connects to BLE-MIDI peripherals with tinygo.org/x/bluetooth
// and exposes each connection as a contracts.Transport.
package tinyble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leandrodaf/blemidi/internal/resolver"
	"github.com/leandrodaf/blemidi/sdk/contracts"
	"tinygo.org/x/bluetooth"
)

var (
	ErrScanFailed            = errors.New("bluetooth scan failed")
	ErrUnknownCharacteristic = errors.New("characteristic was not discovered on this peripheral")
)

var midiService = bluetooth.NewUUID([16]byte(resolver.MidiServiceUUID))

// NotifySink receives raw notification payloads, keyed by peripheral ID.
type NotifySink func(peripheralID string, payload []byte)

// Match selects which advertisement Scan accepts. Empty fields match anything.
type Match struct {
	Name    string // Case-insensitive local name prefix.
	Address string // Exact address, case-insensitive.
}

// Accepts reports whether an advertisement is a BLE-MIDI peripheral matching m.
func (m Match) Accepts(name, address string, advertisesMIDI bool) bool {
	if !advertisesMIDI {
		return false
	}
	if m.Address != "" && !strings.EqualFold(m.Address, address) {
		return false
	}
	if m.Name != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(m.Name)) {
		return false
	}
	return true
}

// Advertisement is a scan result for a BLE-MIDI peripheral.
type Advertisement struct {
	Address bluetooth.Address
	Name    string
	RSSI    int16
}

// Adapter owns the host Bluetooth adapter.
type Adapter struct {
	adapter *bluetooth.Adapter
	logger  contracts.Logger

	mu           sync.Mutex
	onDisconnect func(peripheralID string)
}

// NewAdapter enables the default host adapter.
func NewAdapter(logger contracts.Logger) (*Adapter, error) {
	a := &Adapter{adapter: bluetooth.DefaultAdapter, logger: logger}
	if err := a.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	a.adapter.SetConnectHandler(a.connectionChanged)
	return a, nil
}

// OnDisconnect registers fn to be called with the peripheral ID when a link drops.
func (a *Adapter) OnDisconnect(fn func(peripheralID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDisconnect = fn
}

func (a *Adapter) connectionChanged(device bluetooth.Device, connected bool) {
	id := device.Address.String()
	if connected {
		a.logger.Debug("peripheral connected", a.logger.Field().String("address", id))
		return
	}
	a.logger.Info("peripheral disconnected", a.logger.Field().String("address", id))

	a.mu.Lock()
	fn := a.onDisconnect
	a.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// Scan blocks until an advertisement accepted by m is seen or ctx ends.
func (a *Adapter) Scan(ctx context.Context, m Match) (Advertisement, error) {
	found := make(chan Advertisement, 1)
	done := make(chan error, 1)

	a.logger.Info("scanning for BLE-MIDI peripherals",
		a.logger.Field().String("name", m.Name),
		a.logger.Field().String("address", m.Address))

	go func() {
		done <- a.adapter.Scan(func(ad *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !m.Accepts(r.LocalName(), r.Address.String(), r.HasServiceUUID(midiService)) {
				return
			}
			select {
			case found <- Advertisement{Address: r.Address, Name: r.LocalName(), RSSI: r.RSSI}:
				_ = ad.StopScan()
			default:
			}
		})
	}()

	select {
	case adv := <-found:
		<-done
		a.logger.Info("found BLE-MIDI peripheral",
			a.logger.Field().String("name", adv.Name),
			a.logger.Field().String("address", adv.Address.String()),
			a.logger.Field().Int("rssi", int(adv.RSSI)))
		return adv, nil
	case err := <-done:
		if err == nil {
			err = errors.New("scan stopped")
		}
		return Advertisement{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
	case <-ctx.Done():
		_ = a.adapter.StopScan()
		<-done
		return Advertisement{}, ctx.Err()
	}
}

// Connect opens a link to adv. Notifications from the returned peripheral go to sink.
func (a *Adapter) Connect(adv Advertisement, sink NotifySink) (*Peripheral, error) {
	device, err := a.adapter.Connect(adv.Address, bluetooth.ConnectionParams{})
	if err != nil {
		a.logger.Error("failed to connect",
			a.logger.Field().String("address", adv.Address.String()),
			a.logger.Field().Error("error", err))
		return nil, fmt.Errorf("connect %s: %w", adv.Address.String(), err)
	}
	return newPeripheral(contracts.PeripheralHandle{
		ID:      adv.Address.String(),
		Address: adv.Address.String(),
		Name:    adv.Name,
	}, device, sink, a.logger), nil
}
