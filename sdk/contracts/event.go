package contracts

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Kind identifies the type of a decoded MIDI event.
type Kind byte

const (
	// Channel voice messages.
	NoteOff Kind = iota + 1
	NoteOn
	PolyPressure
	ControlChange
	ProgramChange
	ChannelPressure
	PitchBend

	// System common messages.
	TimeCodeQuarterFrame
	SongPosition
	SongSelect
	TuneRequest

	// SystemExclusive carries the payload between 0xF0 and 0xF7, framing bytes excluded.
	SystemExclusive

	// System realtime messages.
	TimingClock
	Start
	Continue
	Stop
	ActiveSensing
	Reset
)

var kindNames = map[Kind]string{
	NoteOff:              "note_off",
	NoteOn:               "note_on",
	PolyPressure:         "poly_pressure",
	ControlChange:        "control_change",
	ProgramChange:        "program_change",
	ChannelPressure:      "channel_pressure",
	PitchBend:            "pitch_bend",
	TimeCodeQuarterFrame: "time_code_quarter_frame",
	SongPosition:         "song_position",
	SongSelect:           "song_select",
	TuneRequest:          "tune_request",
	SystemExclusive:      "system_exclusive",
	TimingClock:          "timing_clock",
	Start:                "start",
	Continue:             "continue",
	Stop:                 "stop",
	ActiveSensing:        "active_sensing",
	Reset:                "reset",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// IsChannelVoice reports whether the kind carries a MIDI channel.
func (k Kind) IsChannelVoice() bool {
	return k >= NoteOff && k <= PitchBend
}

// IsRealtime reports whether the kind is a single-byte system realtime message.
func (k Kind) IsRealtime() bool {
	return k >= TimingClock && k <= Reset
}

// Event is one MIDI message reconstructed from BLE-MIDI notifications.
type Event struct {
	Kind    Kind
	Channel uint8  // 0-15, channel voice messages only.
	Data1   uint8  // Note / controller / program / pressure / LSB.
	Data2   uint8  // Velocity / value / MSB. Unused for one-byte messages.
	SysEx   []byte // SystemExclusive payload without 0xF0/0xF7.

	// Timestamp is the raw 13-bit BLE-MIDI timestamp in milliseconds.
	Timestamp uint16
	// Time is Timestamp corrected for 8192 ms wraps; it never decreases on one stream.
	Time uint64
}

var statusByKind = map[Kind]byte{
	NoteOff:              0x80,
	NoteOn:               0x90,
	PolyPressure:         0xA0,
	ControlChange:        0xB0,
	ProgramChange:        0xC0,
	ChannelPressure:      0xD0,
	PitchBend:            0xE0,
	TimeCodeQuarterFrame: 0xF1,
	SongPosition:         0xF2,
	SongSelect:           0xF3,
	TuneRequest:          0xF6,
	TimingClock:          0xF8,
	Start:                0xFA,
	Continue:             0xFB,
	Stop:                 0xFC,
	ActiveSensing:        0xFE,
	Reset:                0xFF,
}

// Status returns the MIDI status byte of the event.
func (e Event) Status() byte {
	if e.Kind == SystemExclusive {
		return 0xF0
	}
	st := statusByKind[e.Kind]
	if e.Kind.IsChannelVoice() {
		st |= e.Channel & 0x0F
	}
	return st
}

// Bytes returns the event as raw MIDI wire bytes, status byte included.
// System exclusive messages are framed with 0xF0 and 0xF7.
func (e Event) Bytes() []byte {
	switch e.Kind {
	case SystemExclusive:
		out := make([]byte, 0, len(e.SysEx)+2)
		out = append(out, 0xF0)
		out = append(out, e.SysEx...)
		return append(out, 0xF7)
	case NoteOff, NoteOn, PolyPressure, ControlChange, PitchBend, SongPosition:
		return []byte{e.Status(), e.Data1 & 0x7F, e.Data2 & 0x7F}
	case ProgramChange, ChannelPressure, TimeCodeQuarterFrame, SongSelect:
		return []byte{e.Status(), e.Data1 & 0x7F}
	default:
		return []byte{e.Status()}
	}
}

// Message converts the event into a gomidi message.
func (e Event) Message() midi.Message {
	return midi.Message(e.Bytes())
}

// PitchBendValue returns the signed pitch bend amount (-8192..8191).
func (e Event) PitchBendValue() int16 {
	return int16(uint16(e.Data2)<<7|uint16(e.Data1)) - 8192
}

// SongPositionValue returns the 14-bit song position pointer.
func (e Event) SongPositionValue() uint16 {
	return uint16(e.Data2)<<7 | uint16(e.Data1)
}

func (e Event) String() string {
	switch {
	case e.Kind == SystemExclusive:
		return fmt.Sprintf("%s len=%d t=%d", e.Kind, len(e.SysEx), e.Time)
	case e.Kind.IsChannelVoice():
		return fmt.Sprintf("%s ch=%d data1=%d data2=%d t=%d", e.Kind, e.Channel, e.Data1, e.Data2, e.Time)
	default:
		return fmt.Sprintf("%s t=%d", e.Kind, e.Time)
	}
}

// EventFilter allows users to specify which event kinds are delivered.
type EventFilter struct {
	Kinds []Kind // Empty means everything.
}

// Allows reports whether the filter lets an event kind through.
func (f *EventFilter) Allows(k Kind) bool {
	if f == nil || len(f.Kinds) == 0 {
		return true
	}
	for _, allowed := range f.Kinds {
		if allowed == k {
			return true
		}
	}
	return false
}

// Consumer receives decoded events in decode order, one call per event.
type Consumer interface {
	OnMidiEvent(peripheral PeripheralHandle, event Event)
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc func(peripheral PeripheralHandle, event Event)

// OnMidiEvent calls f(peripheral, event).
func (f ConsumerFunc) OnMidiEvent(peripheral PeripheralHandle, event Event) {
	f(peripheral, event)
}
