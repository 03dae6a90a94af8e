package blemidi

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leandrodaf/blemidi/sdk/contracts"
)

// Central keeps one InputChannel per connected peripheral and routes
// transport callbacks to it. Calls for the same peripheral are serialized;
// different peripherals never wait on each other once routed.
type Central struct {
	options  contracts.ClientOptions
	logger   contracts.Logger
	consumer contracts.Consumer

	mu      sync.Mutex
	entries map[string]*entry

	listenerMu sync.RWMutex
	onAttached func(*InputChannel)
	onDetached func(*InputChannel)
}

type entry struct {
	mu sync.Mutex // serializes Feed and Stop for one peripheral
	ch *InputChannel
}

// NewCentral creates a registry whose channels deliver to consumer.
func NewCentral(consumer contracts.Consumer, opts ...contracts.Option) (*Central, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}
	options := ApplyDefaultOptions(opts...)
	return &Central{
		options:  options,
		logger:   options.Logger,
		consumer: consumer,
		entries:  map[string]*entry{},
	}, nil
}

// SetOnAttached registers a listener called after a new peripheral's channel started.
func (c *Central) SetOnAttached(fn func(*InputChannel)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.onAttached = fn
}

// SetOnDetached registers a listener called after a peripheral's channel stopped.
func (c *Central) SetOnDetached(fn func(*InputChannel)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.onDetached = fn
}

// ServicesDiscovered opens, starts and subscribes the channel for a freshly
// discovered peripheral. A channel already registered for the same
// peripheral ID is stopped and replaced without a detach notification,
// unless subscribing the replacement fails: then the peripheral has no
// channel left and the old one is reported detached.
func (c *Central) ServicesDiscovered(peripheral contracts.PeripheralHandle, services []contracts.ServiceDescriptor, transport contracts.Transport) (*InputChannel, error) {
	ch, err := open(peripheral, services, transport, c.options)
	if err != nil {
		return nil, err
	}
	if err := ch.Start(c.consumer); err != nil {
		return nil, err
	}

	e := &entry{ch: ch}
	c.mu.Lock()
	old, replaced := c.entries[peripheral.ID]
	c.entries[peripheral.ID] = e
	c.mu.Unlock()

	if replaced {
		old.mu.Lock()
		old.ch.Stop()
		old.mu.Unlock()
		c.logger.Info("replaced MIDI input channel", c.logger.Field().String("peripheral", peripheral.String()))
	}

	if err := ch.EnableNotifications(); err != nil {
		c.remove(peripheral.ID, e)
		e.mu.Lock()
		ch.Stop()
		e.mu.Unlock()
		if replaced {
			c.notifyDetached(old.ch)
		}
		return nil, fmt.Errorf("subscribe %s: %w", peripheral, err)
	}

	if !replaced {
		c.listenerMu.RLock()
		fn := c.onAttached
		c.listenerMu.RUnlock()
		if fn != nil {
			fn(ch)
		}
	}
	return ch, nil
}

// Notify routes a notification payload to the peripheral's channel.
// Payloads for unknown peripherals are dropped.
func (c *Central) Notify(peripheralID string, payload []byte) {
	c.mu.Lock()
	e, ok := c.entries[peripheralID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("notification for unknown peripheral dropped",
			c.logger.Field().String("peripheral", peripheralID))
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ch.Feed(payload)
}

// Disconnect stops and forgets the channel of a peripheral. It reports
// whether a channel was registered.
func (c *Central) Disconnect(peripheralID string) bool {
	c.mu.Lock()
	e, ok := c.entries[peripheralID]
	delete(c.entries, peripheralID)
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.detach(e)
	return true
}

// Terminate stops every channel.
func (c *Central) Terminate() {
	c.mu.Lock()
	entries := c.entries
	c.entries = map[string]*entry{}
	c.mu.Unlock()

	for _, e := range entries {
		c.detach(e)
	}
}

// Channel returns the channel registered for a peripheral.
func (c *Central) Channel(peripheralID string) (*InputChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[peripheralID]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// Channels returns the registered channels ordered by peripheral ID.
func (c *Central) Channels() []*InputChannel {
	c.mu.Lock()
	out := make([]*InputChannel, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.ch)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].peripheral.ID < out[j].peripheral.ID })
	return out
}

func (c *Central) remove(id string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[id] == e {
		delete(c.entries, id)
	}
}

func (c *Central) detach(e *entry) {
	e.mu.Lock()
	e.ch.Stop()
	e.mu.Unlock()
	c.notifyDetached(e.ch)
}

func (c *Central) notifyDetached(ch *InputChannel) {
	c.listenerMu.RLock()
	fn := c.onDetached
	c.listenerMu.RUnlock()
	if fn != nil {
		fn(ch)
	}
}
