// Package parser turns BLE-MIDI notification payloads into MIDI events.
//
// A payload is one header byte carrying the high 6 bits of a 13-bit
// millisecond timestamp, followed by MIDI messages, each normally preceded by
// a timestamp byte with the low 7 bits. Running status, system exclusive
// accumulation and the timestamp history carry over from one payload to the
// next, so a decoder must only ever see the stream of a single peripheral.
package parser

import (
	"errors"
	"fmt"

	"github.com/leandrodaf/blemidi/sdk/contracts"
)

var (
	ErrMalformedHeader        = errors.New("malformed BLE-MIDI header")
	ErrUnexpectedContinuation = errors.New("unexpected data without status or system exclusive context")
	ErrTruncatedMessage       = errors.New("truncated MIDI message")
)

// TimestampModulo is the period of the 13-bit BLE-MIDI timestamp in ms.
const TimestampModulo = 1 << 13

// DecoderState is everything a decoder carries between payloads.
// SysEx is non-empty only while InSysEx is true.
type DecoderState struct {
	RunningStatus byte // Channel voice status in effect, 0 when none.
	InSysEx       bool
	SysEx         []byte
	HighTimestamp uint8  // High 6 bits from the latest header.
	LastTimestamp uint16 // Latest raw 13-bit timestamp.
	HasTimestamp  bool   // LastTimestamp holds a decoded value.
	Epoch         uint64 // Wrap correction added to raw timestamps.
}

// Clone returns a deep copy of the state.
func (s DecoderState) Clone() DecoderState {
	if s.SysEx != nil {
		s.SysEx = append([]byte(nil), s.SysEx...)
	}
	return s
}

// PacketDecoder owns the state of one peripheral's input stream.
// It is not safe for concurrent use.
type PacketDecoder struct {
	state DecoderState
}

// NewPacketDecoder returns a decoder with empty state.
func NewPacketDecoder() *PacketDecoder {
	return &PacketDecoder{}
}

// Decode consumes one notification payload. Events decoded before an error
// are returned together with it; the state they produced is kept.
func (d *PacketDecoder) Decode(payload []byte) ([]contracts.Event, error) {
	return Decode(&d.state, payload)
}

// State returns a copy of the current decoder state.
func (d *PacketDecoder) State() DecoderState {
	return d.state.Clone()
}

// Reset drops all carried state, including a partial system exclusive.
func (d *PacketDecoder) Reset() {
	d.state = DecoderState{}
}

// Decode consumes payload against st. A payload whose header byte lacks the
// top bit is rejected before st is touched.
func Decode(st *DecoderState, payload []byte) ([]contracts.Event, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if payload[0]&0x80 == 0 {
		return nil, fmt.Errorf("%w: 0x%02X", ErrMalformedHeader, payload[0])
	}

	pk := &packet{st: st, buf: payload, pos: 1, high: payload[0] & 0x3F, lastLow: -1}
	st.HighTimestamp = pk.high
	err := pk.run()
	return pk.events, err
}

type packet struct {
	st  *DecoderState
	buf []byte
	pos int

	high    uint8
	lastLow int // low bits of the previous timestamp byte in this payload, -1 if none

	ts        uint16
	time      uint64
	haveTS    bool // a timestamp has been resolved for this payload
	pendingTS bool // previous byte was a timestamp, a status byte may follow

	events []contracts.Event
}

func (pk *packet) run() error {
	for pk.pos < len(pk.buf) {
		b := pk.buf[pk.pos]
		if b&0x80 == 0 {
			if err := pk.data(); err != nil {
				return err
			}
			continue
		}
		if !pk.pendingTS && !pk.bareEndOfSysEx(b) {
			pk.timestamp(b & 0x7F)
			pk.pos++
			continue
		}
		pk.pendingTS = false
		if err := pk.status(b); err != nil {
			return err
		}
	}
	return nil
}

// bareEndOfSysEx reports whether b is an 0xF7 closing a system exclusive
// without a preceding timestamp byte. When a status byte follows, b is read
// as the timestamp of that status instead.
func (pk *packet) bareEndOfSysEx(b byte) bool {
	if !pk.st.InSysEx || b != 0xF7 {
		return false
	}
	next := pk.pos + 1
	return next == len(pk.buf) || pk.buf[next]&0x80 == 0
}

// timestamp applies a timestamp byte. A low part smaller than the previous
// one in the same payload means the high part rolled over.
func (pk *packet) timestamp(low uint8) {
	if pk.lastLow >= 0 && int(low) < pk.lastLow {
		pk.high = (pk.high + 1) & 0x3F
	}
	pk.lastLow = int(low)
	pk.resolve(uint16(pk.high)<<7 | uint16(low))
	pk.pendingTS = true
}

// implicitTimestamp gives events that arrive before any timestamp byte in
// this payload the header's high bits and the last known low bits.
func (pk *packet) implicitTimestamp() {
	if pk.haveTS {
		return
	}
	low := pk.st.LastTimestamp & 0x7F
	pk.lastLow = int(low)
	pk.resolve(uint16(pk.high)<<7 | low)
}

func (pk *packet) resolve(raw uint16) {
	st := pk.st
	if st.HasTimestamp && raw < st.LastTimestamp {
		st.Epoch += TimestampModulo
	}
	st.LastTimestamp = raw
	st.HasTimestamp = true
	pk.ts = raw
	pk.time = st.Epoch + uint64(raw)
	pk.haveTS = true
}

func (pk *packet) emit(ev contracts.Event) {
	ev.Timestamp = pk.ts
	ev.Time = pk.time
	pk.events = append(pk.events, ev)
}

// data handles a byte with the top bit clear at the start of an event.
func (pk *packet) data() error {
	pk.pendingTS = false
	st := pk.st
	if st.InSysEx {
		start := pk.pos
		for pk.pos < len(pk.buf) && pk.buf[pk.pos]&0x80 == 0 {
			pk.pos++
		}
		st.SysEx = append(st.SysEx, pk.buf[start:pk.pos]...)
		return nil
	}
	if st.RunningStatus == 0 {
		return fmt.Errorf("%w: 0x%02X at offset %d", ErrUnexpectedContinuation, pk.buf[pk.pos], pk.pos)
	}
	return pk.message(st.RunningStatus)
}

func (pk *packet) status(b byte) error {
	st := pk.st
	pk.pos++

	if b >= 0xF8 {
		pk.realtime(b)
		return nil
	}

	if st.InSysEx {
		if b == 0xF7 {
			pk.implicitTimestamp()
			pk.emit(contracts.Event{Kind: contracts.SystemExclusive, SysEx: st.SysEx})
			st.SysEx = nil
			st.InSysEx = false
			return nil
		}
		// Any other status aborts the exclusive and is decoded normally.
		st.SysEx = nil
		st.InSysEx = false
	}

	switch {
	case b == 0xF0:
		st.RunningStatus = 0
		st.InSysEx = true
		st.SysEx = []byte{}
		return nil
	case b == 0xF7:
		return fmt.Errorf("%w: end of exclusive at offset %d", ErrUnexpectedContinuation, pk.pos-1)
	case b > 0xF0:
		st.RunningStatus = 0
		return pk.message(b)
	default:
		st.RunningStatus = b
		return pk.message(b)
	}
}

// message reads the data bytes of status starting at the current position.
func (pk *packet) message(status byte) error {
	n := dataLength(status)
	start := pk.pos
	for i := start; i < start+n; i++ {
		if i >= len(pk.buf) || pk.buf[i]&0x80 != 0 {
			return fmt.Errorf("%w: status 0x%02X needs %d data bytes, got %d", ErrTruncatedMessage, status, n, i-start)
		}
	}
	pk.pos = start + n

	ev, ok := eventFor(status, pk.buf[start:pk.pos])
	if !ok {
		return nil
	}
	pk.implicitTimestamp()
	pk.emit(ev)
	return nil
}

func (pk *packet) realtime(b byte) {
	kind, ok := realtimeKinds[b]
	if !ok {
		return
	}
	pk.implicitTimestamp()
	pk.emit(contracts.Event{Kind: kind})
}
