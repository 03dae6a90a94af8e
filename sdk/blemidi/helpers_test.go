package blemidi

import (
	"sync"

	"github.com/leandrodaf/blemidi/internal/logger"
	"github.com/leandrodaf/blemidi/sdk/contracts"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	midiServiceUUID = "03B80E5A-EDE8-4B33-A751-6CE34EC4C700"
	midiIOUUID      = "7772E5DB-3868-4112-A1A9-F2669D106BF3"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SetNotifyEnabled(c contracts.CharacteristicDescriptor, enabled bool) error {
	return m.Called(c, enabled).Error(0)
}

func (m *mockTransport) WriteDescriptor(c contracts.CharacteristicDescriptor, d contracts.GattDescriptor, value []byte) error {
	return m.Called(c, d, value).Error(0)
}

func (m *mockTransport) ReadCharacteristic(c contracts.CharacteristicDescriptor) error {
	return m.Called(c).Error(0)
}

// acceptAll stubs every transport request with success.
func acceptAll() *mockTransport {
	tr := &mockTransport{}
	tr.On("SetNotifyEnabled", mock.Anything, true).Return(nil)
	tr.On("WriteDescriptor", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tr.On("ReadCharacteristic", mock.Anything).Return(nil)
	return tr
}

type received struct {
	peripheral contracts.PeripheralHandle
	event      contracts.Event
}

type recorder struct {
	mu     sync.Mutex
	events []received
}

func (r *recorder) OnMidiEvent(p contracts.PeripheralHandle, ev contracts.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, received{p, ev})
}

func (r *recorder) all() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]received(nil), r.events...)
}

func observedLogger() (contracts.Option, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return contracts.WithLogger(logger.NewFromZap(zap.New(core))), logs
}

func quietLogger() contracts.Option {
	return contracts.WithLogger(logger.NewFromZap(zap.NewNop()))
}

func midiServices(withCCCD bool) []contracts.ServiceDescriptor {
	io := contracts.CharacteristicDescriptor{UUID: midiIOUUID, Notify: true, Write: true}
	if withCCCD {
		io.Descriptors = []contracts.GattDescriptor{{UUID: "2902"}}
	}
	return []contracts.ServiceDescriptor{
		{UUID: "1800", Characteristics: []contracts.CharacteristicDescriptor{{UUID: "2a00"}}},
		{UUID: midiServiceUUID, Characteristics: []contracts.CharacteristicDescriptor{io}},
	}
}

func peripheral(id string) contracts.PeripheralHandle {
	return contracts.PeripheralHandle{ID: id, Address: id, Name: "Keys " + id}
}
