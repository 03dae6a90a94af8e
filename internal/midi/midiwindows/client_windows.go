//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/leandrodaf/blemidi/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIOUT windows.Handle

// Constants for midiOutOpen and header handling
const (
	CALLBACK_NULL        = 0x00000000 // No completion callback
	MIDIERR_STILLPLAYING = 65         // Header is still queued
	MMSYSERR_NOERROR     = 0
)

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// ErrNoMIDIDestinations is returned when no output device is installed.
var ErrNoMIDIDestinations = errors.New("no MIDI output devices found")

// Output forwards decoded BLE-MIDI events to a winmm output device
type Output struct {
	logger   contracts.Logger
	handle   HMIDIOUT
	portConn bool
	mu       sync.Mutex
}

// Load the winmm.dll library and required functions
var (
	winmm                      = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs      = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps      = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen            = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg        = winmm.NewProc("midiOutShortMsg")
	procMidiOutPrepareHeader   = winmm.NewProc("midiOutPrepareHeader")
	procMidiOutLongMsg         = winmm.NewProc("midiOutLongMsg")
	procMidiOutUnprepareHeader = winmm.NewProc("midiOutUnprepareHeader")
	procMidiOutReset           = winmm.NewProc("midiOutReset")
	procMidiOutClose           = winmm.NewProc("midiOutClose")
)

// NewMIDIOutput creates a MIDI output for Windows
func NewMIDIOutput(options *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	options.Logger.Info("MIDI output created for Windows")
	return &Output{logger: options.Logger}, nil
}

// ListDestinations lists the available MIDI output devices
func (m *Output) ListDestinations() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn(ErrNoMIDIDestinations.Error())
		return nil, ErrNoMIDIDestinations
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != MMSYSERR_NOERROR {
			m.logger.Warn("Failed to get information for MIDI output device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDestination opens the output device, closing any previous one
func (m *Output) SelectDestination(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn {
		if err := m.close(); err != nil {
			return fmt.Errorf("failed to close previous MIDI output: %w", err)
		}
	}

	r1, _, err := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != MMSYSERR_NOERROR {
		m.logger.Error("Failed to open MIDI output device",
			m.logger.Field().Int("deviceID", deviceID),
			m.logger.Field().Error("error", err))
		return fmt.Errorf("failed to open MIDI output device %d: %v", deviceID, err)
	}

	m.portConn = true
	m.logger.Info("MIDI output device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// OnMidiEvent sends the event to the open output device
func (m *Output) OnMidiEvent(peripheral contracts.PeripheralHandle, ev contracts.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn {
		return
	}

	data := ev.Bytes()
	var err error
	if msg, ok := shortMessage(data); ok {
		err = m.sendShort(msg)
	} else {
		err = m.sendLong(data)
	}
	if err != nil {
		m.logger.Warn("Failed to send MIDI event",
			m.logger.Field().String("peripheral", peripheral.String()),
			m.logger.Field().String("kind", ev.Kind.String()),
			m.logger.Field().Error("error", err))
	}
}

func (m *Output) sendShort(msg uint32) error {
	r1, _, err := procMidiOutShortMsg.Call(uintptr(m.handle), uintptr(msg))
	if r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("midiOutShortMsg: %v", err)
	}
	return nil
}

// sendLong queues data as a system exclusive buffer and waits until the
// driver releases it. The driver holds the header and buffer addresses until
// unprepare succeeds, so both stay on the heap and alive until then.
func (m *Output) sendLong(data []byte) error {
	hdr := newSysExHeader(data)
	defer runtime.KeepAlive(data)
	defer runtime.KeepAlive(hdr)

	ptr := uintptr(unsafe.Pointer(hdr))
	size := unsafe.Sizeof(*hdr)

	if r1, _, err := procMidiOutPrepareHeader.Call(uintptr(m.handle), ptr, size); r1 != MMSYSERR_NOERROR {
		return fmt.Errorf("midiOutPrepareHeader: %v", err)
	}
	if r1, _, err := procMidiOutLongMsg.Call(uintptr(m.handle), ptr, size); r1 != MMSYSERR_NOERROR {
		procMidiOutUnprepareHeader.Call(uintptr(m.handle), ptr, size)
		return fmt.Errorf("midiOutLongMsg: %v", err)
	}
	for {
		r1, _, err := procMidiOutUnprepareHeader.Call(uintptr(m.handle), ptr, size)
		switch r1 {
		case MMSYSERR_NOERROR:
			return nil
		case MIDIERR_STILLPLAYING:
			time.Sleep(time.Millisecond)
		default:
			return fmt.Errorf("midiOutUnprepareHeader: %v", err)
		}
	}
}

// Stop resets and closes the output device
func (m *Output) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn {
		m.logger.Warn("No MIDI output device is connected")
		return nil
	}

	if err := m.close(); err != nil {
		return fmt.Errorf("failed to stop MIDI output: %w", err)
	}
	m.logger.Info("MIDI output device closed")
	return nil
}

// close resets the device and releases the handle
func (m *Output) close() error {
	if m.handle == 0 {
		return fmt.Errorf("invalid MIDI output handle")
	}

	r1, _, err := procMidiOutReset.Call(uintptr(m.handle))
	if r1 != MMSYSERR_NOERROR {
		m.logger.Error("Failed to reset MIDI output", m.logger.Field().Error("error", err))
		return err
	}

	r1, _, err = procMidiOutClose.Call(uintptr(m.handle))
	if r1 != MMSYSERR_NOERROR {
		m.logger.Error("Failed to close MIDI output", m.logger.Field().Error("error", err))
		return err
	}

	m.portConn = false
	m.handle = 0
	return nil
}
