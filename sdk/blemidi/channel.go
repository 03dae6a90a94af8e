// Package blemidi receives MIDI from Bluetooth LE MIDI peripherals.
//
// An InputChannel binds one peripheral's BLE-MIDI data characteristic to a
// decoder and a consumer. The transport delivers notification payloads with
// Feed; decoded events reach the consumer in order. A channel is driven by a
// single goroutine at a time: Feed, Start and Stop must not overlap. Central
// provides that serialization when many peripherals are connected.
package blemidi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/leandrodaf/blemidi/internal/parser"
	"github.com/leandrodaf/blemidi/internal/resolver"
	"github.com/leandrodaf/blemidi/sdk/contracts"
)

// Stats are per-channel counters, safe to read from any goroutine.
type Stats struct {
	Packets                 uint64 // Payloads handed to the decoder.
	Events                  uint64 // Events delivered to the consumer.
	Filtered                uint64 // Events withheld by the event filter.
	Dropped                 uint64 // Payloads fed while the channel was not started.
	MalformedHeaders        uint64
	UnexpectedContinuations uint64
	TruncatedMessages       uint64
}

type counters struct {
	packets, events, filtered, dropped atomic.Uint64
	malformed, unexpected, truncated   atomic.Uint64
}

// InputChannel is the receiving side of one peripheral's BLE-MIDI stream.
type InputChannel struct {
	peripheral     contracts.PeripheralHandle
	service        contracts.ServiceDescriptor
	characteristic contracts.CharacteristicDescriptor
	transport      contracts.Transport

	logger        contracts.Logger
	filter        *contracts.EventFilter
	onDecodeError contracts.DecodeErrorHandler

	decoder  *parser.PacketDecoder
	consumer contracts.Consumer
	stats    counters
}

// Open resolves the BLE-MIDI service and data characteristic among services
// and returns a channel for them. Nothing is returned unless both lookups
// succeed; failures are *NotFoundError listing the UUIDs that were present.
func Open(peripheral contracts.PeripheralHandle, services []contracts.ServiceDescriptor, transport contracts.Transport, opts ...contracts.Option) (*InputChannel, error) {
	return open(peripheral, services, transport, ApplyDefaultOptions(opts...))
}

// OpenService is Open for an already resolved MIDI service.
func OpenService(peripheral contracts.PeripheralHandle, service contracts.ServiceDescriptor, transport contracts.Transport, opts ...contracts.Option) (*InputChannel, error) {
	return openService(peripheral, service, transport, ApplyDefaultOptions(opts...))
}

func open(peripheral contracts.PeripheralHandle, services []contracts.ServiceDescriptor, transport contracts.Transport, options contracts.ClientOptions) (*InputChannel, error) {
	service, err := resolver.FindMidiService(services)
	if err != nil {
		options.Logger.Warn("peripheral does not expose the MIDI service",
			options.Logger.Field().String("peripheral", peripheral.String()),
			options.Logger.Field().Error("error", err))
		return nil, err
	}
	return openService(peripheral, service, transport, options)
}

func openService(peripheral contracts.PeripheralHandle, service contracts.ServiceDescriptor, transport contracts.Transport, options contracts.ClientOptions) (*InputChannel, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	characteristic, err := resolver.FindInputCharacteristic(service)
	if err != nil {
		options.Logger.Warn("MIDI service has no input characteristic",
			options.Logger.Field().String("peripheral", peripheral.String()),
			options.Logger.Field().Error("error", err))
		return nil, err
	}

	options.Logger.Info("MIDI input channel opened",
		options.Logger.Field().String("peripheral", peripheral.String()),
		options.Logger.Field().String("characteristic", characteristic.UUID))

	return &InputChannel{
		peripheral:     peripheral,
		service:        service,
		characteristic: characteristic,
		transport:      transport,
		logger:         options.Logger,
		filter:         options.EventFilter,
		onDecodeError:  options.DecodeErrorHandler,
	}, nil
}

// Peripheral returns the peripheral this channel reads from.
func (c *InputChannel) Peripheral() contracts.PeripheralHandle { return c.peripheral }

// Service returns the resolved MIDI service.
func (c *InputChannel) Service() contracts.ServiceDescriptor { return c.service }

// Characteristic returns the resolved MIDI data characteristic.
func (c *InputChannel) Characteristic() contracts.CharacteristicDescriptor { return c.characteristic }

// EnableNotifications asks the transport to deliver notifications for the
// MIDI characteristic, writes the client characteristic configuration when
// the peripheral exposes that descriptor, and issues the initial read.
func (c *InputChannel) EnableNotifications() error {
	if err := c.transport.SetNotifyEnabled(c.characteristic, true); err != nil {
		c.logger.Error("failed to enable notifications",
			c.logger.Field().String("peripheral", c.peripheral.String()),
			c.logger.Field().Error("error", err))
		return fmt.Errorf("enable notifications on %s: %w", c.characteristic.UUID, err)
	}

	if d, ok := resolver.FindDescriptor(c.characteristic, resolver.ClientCharacteristicConfigUUID); ok {
		if err := c.transport.WriteDescriptor(c.characteristic, d, contracts.EnableNotificationValue()); err != nil {
			c.logger.Error("failed to write client characteristic configuration",
				c.logger.Field().String("peripheral", c.peripheral.String()),
				c.logger.Field().Error("error", err))
			return fmt.Errorf("write descriptor %s: %w", d.UUID, err)
		}
	} else {
		c.logger.Debug("no client characteristic configuration descriptor; skipping",
			c.logger.Field().String("peripheral", c.peripheral.String()))
	}

	if err := c.transport.ReadCharacteristic(c.characteristic); err != nil {
		return fmt.Errorf("read characteristic %s: %w", c.characteristic.UUID, err)
	}
	return nil
}

// Start allocates a fresh decoder and registers consumer as the sink for
// decoded events. Starting a started channel is an error.
func (c *InputChannel) Start(consumer contracts.Consumer) error {
	if consumer == nil {
		return ErrNilConsumer
	}
	if c.decoder != nil {
		c.logger.Warn("input channel already started",
			c.logger.Field().String("peripheral", c.peripheral.String()))
		return ErrAlreadyStarted
	}
	c.decoder = parser.NewPacketDecoder()
	c.consumer = consumer
	c.logger.Info("MIDI input started", c.logger.Field().String("peripheral", c.peripheral.String()))
	return nil
}

// Started reports whether the channel has a live decoder.
func (c *InputChannel) Started() bool {
	return c.decoder != nil
}

// Feed decodes one notification payload and hands the resulting events to
// the consumer. Payloads arriving before Start or after Stop are dropped.
func (c *InputChannel) Feed(payload []byte) {
	decoder, consumer := c.decoder, c.consumer
	if decoder == nil {
		c.stats.dropped.Add(1)
		c.logger.Debug("payload dropped; input channel not started",
			c.logger.Field().String("peripheral", c.peripheral.String()),
			c.logger.Field().Int("len", len(payload)))
		return
	}

	c.stats.packets.Add(1)
	events, err := decoder.Decode(payload)
	for _, ev := range events {
		if !c.filter.Allows(ev.Kind) {
			c.stats.filtered.Add(1)
			continue
		}
		c.stats.events.Add(1)
		consumer.OnMidiEvent(c.peripheral, ev)
	}
	if err != nil {
		c.reportDecodeError(err, payload)
	}
}

func (c *InputChannel) reportDecodeError(err error, payload []byte) {
	switch {
	case errors.Is(err, parser.ErrMalformedHeader):
		c.stats.malformed.Add(1)
	case errors.Is(err, parser.ErrUnexpectedContinuation):
		c.stats.unexpected.Add(1)
	case errors.Is(err, parser.ErrTruncatedMessage):
		c.stats.truncated.Add(1)
	}
	c.logger.Warn("BLE-MIDI payload could not be fully decoded",
		c.logger.Field().String("peripheral", c.peripheral.String()),
		c.logger.Field().Error("error", err),
		c.logger.Field().Binary("payload", payload))
	if c.onDecodeError != nil {
		c.onDecodeError(c.peripheral, err)
	}
}

// Stop discards the decoder, including any partial system exclusive, and
// releases the consumer. Later Feed calls are no-ops.
func (c *InputChannel) Stop() {
	if c.decoder == nil {
		return
	}
	if st := c.decoder.State(); st.InSysEx {
		c.logger.Debug("discarding partial system exclusive",
			c.logger.Field().String("peripheral", c.peripheral.String()),
			c.logger.Field().Int("len", len(st.SysEx)))
	}
	c.decoder = nil
	c.consumer = nil
	c.logger.Info("MIDI input stopped", c.logger.Field().String("peripheral", c.peripheral.String()))
}

// Stats returns a snapshot of the channel counters.
func (c *InputChannel) Stats() Stats {
	return Stats{
		Packets:                 c.stats.packets.Load(),
		Events:                  c.stats.events.Load(),
		Filtered:                c.stats.filtered.Load(),
		Dropped:                 c.stats.dropped.Load(),
		MalformedHeaders:        c.stats.malformed.Load(),
		UnexpectedContinuations: c.stats.unexpected.Load(),
		TruncatedMessages:       c.stats.truncated.Load(),
	}
}
