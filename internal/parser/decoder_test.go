package parser

import (
	"testing"

	"github.com/leandrodaf/blemidi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_SingleNoteOn(t *testing.T) {
	d := NewPacketDecoder()

	evs, err := d.Decode([]byte{0x85, 0xA3, 0x93, 0x3C, 0x64})
	require.NoError(t, err)
	require.Len(t, evs, 1)

	ev := evs[0]
	assert.Equal(t, contracts.NoteOn, ev.Kind)
	assert.EqualValues(t, 3, ev.Channel)
	assert.EqualValues(t, 0x3C, ev.Data1)
	assert.EqualValues(t, 0x64, ev.Data2)
	assert.EqualValues(t, 5<<7|0x23, ev.Timestamp)
	assert.EqualValues(t, 5<<7|0x23, ev.Time)
}

func TestDecode_ChannelVoiceKinds(t *testing.T) {
	cases := []struct {
		name    string
		msg     []byte
		kind    contracts.Kind
		channel uint8
		d1, d2  uint8
	}{
		{"note off", []byte{0x81, 0x40, 0x10}, contracts.NoteOff, 1, 0x40, 0x10},
		{"poly pressure", []byte{0xA2, 0x40, 0x20}, contracts.PolyPressure, 2, 0x40, 0x20},
		{"control change", []byte{0xBF, 0x07, 0x64}, contracts.ControlChange, 15, 0x07, 0x64},
		{"program change", []byte{0xC4, 0x05}, contracts.ProgramChange, 4, 0x05, 0},
		{"channel pressure", []byte{0xD5, 0x33}, contracts.ChannelPressure, 5, 0x33, 0},
		{"pitch bend", []byte{0xE6, 0x00, 0x40}, contracts.PitchBend, 6, 0x00, 0x40},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := append([]byte{0x80, 0x80}, c.msg...)
			evs, err := NewPacketDecoder().Decode(payload)
			require.NoError(t, err)
			require.Len(t, evs, 1)
			assert.Equal(t, c.kind, evs[0].Kind)
			assert.Equal(t, c.channel, evs[0].Channel)
			assert.Equal(t, c.d1, evs[0].Data1)
			assert.Equal(t, c.d2, evs[0].Data2)
		})
	}
}

func TestDecode_RunningStatusWithTimestamp(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x81, 0x90, 0x40, 0x7F, 0x82, 0x41, 0x7F})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	for i, note := range []uint8{0x40, 0x41} {
		assert.Equal(t, contracts.NoteOn, evs[i].Kind)
		assert.EqualValues(t, 0, evs[i].Channel)
		assert.Equal(t, note, evs[i].Data1)
		assert.EqualValues(t, 0x7F, evs[i].Data2)
	}
	assert.EqualValues(t, 1, evs[0].Timestamp)
	assert.EqualValues(t, 2, evs[1].Timestamp)
}

func TestDecode_RunningStatusWithoutTimestamp(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x81, 0xB0, 0x07, 0x10, 0x0A, 0x20})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, contracts.ControlChange, evs[1].Kind)
	assert.EqualValues(t, 0x0A, evs[1].Data1)
	assert.Equal(t, evs[0].Timestamp, evs[1].Timestamp)
}

func TestDecode_RunningStatusAcrossPackets(t *testing.T) {
	d := NewPacketDecoder()
	_, err := d.Decode([]byte{0x80, 0x81, 0x92, 0x40, 0x7F})
	require.NoError(t, err)

	evs, err := d.Decode([]byte{0x80, 0x85, 0x43, 0x00})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, contracts.NoteOn, evs[0].Kind)
	assert.EqualValues(t, 2, evs[0].Channel)
	assert.EqualValues(t, 0x43, evs[0].Data1)
	assert.EqualValues(t, 5, evs[0].Timestamp)
}

func TestDecode_TimestampWrap(t *testing.T) {
	d := NewPacketDecoder()

	// raw 8190 = high 63, low 126
	first, err := d.Decode([]byte{0xBF, 0xFE, 0x90, 0x40, 0x7F})
	require.NoError(t, err)
	// raw 5 = high 0, low 5
	second, err := d.Decode([]byte{0x80, 0x85, 0x80, 0x40, 0x00})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.EqualValues(t, 8190, first[0].Timestamp)
	assert.EqualValues(t, 5, second[0].Timestamp)
	assert.Greater(t, second[0].Time, first[0].Time)
	assert.EqualValues(t, TimestampModulo+5, second[0].Time)

	st := d.State()
	assert.EqualValues(t, 5, st.LastTimestamp)
	assert.EqualValues(t, TimestampModulo, st.Epoch)
}

func TestDecode_TimestampLowRolloverWithinPacket(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0xFF, 0xF8, 0x81, 0xF8})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.EqualValues(t, 127, evs[0].Timestamp)
	assert.EqualValues(t, 1<<7|1, evs[1].Timestamp)
	assert.EqualValues(t, 1<<7|1, evs[1].Time)
}

func TestDecode_TimeNeverDecreases(t *testing.T) {
	d := NewPacketDecoder()
	var last uint64
	for i := 0; i < 200; i++ {
		raw := uint16(i*97) % TimestampModulo
		payload := []byte{0x80 | byte(raw>>7), 0x80 | byte(raw&0x7F), 0xF8}
		evs, err := d.Decode(payload)
		require.NoError(t, err)
		require.Len(t, evs, 1)
		require.GreaterOrEqual(t, evs[0].Time, last)
		last = evs[0].Time
	}
}

func TestDecode_SysExAcrossPackets(t *testing.T) {
	d := NewPacketDecoder()

	evs, err := d.Decode([]byte{0x80, 0x80, 0xF0, 0x01, 0x02})
	require.NoError(t, err)
	assert.Empty(t, evs)
	st := d.State()
	assert.True(t, st.InSysEx)
	assert.Equal(t, []byte{0x01, 0x02}, st.SysEx)

	evs, err = d.Decode([]byte{0x81, 0x03, 0x04, 0xF7})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, contracts.SystemExclusive, evs[0].Kind)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, evs[0].SysEx)

	st = d.State()
	assert.False(t, st.InSysEx)
	assert.Empty(t, st.SysEx)
}

func TestDecode_SysExWithTimestampedEnd(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x80, 0xF0, 0x7E, 0x7F, 0x09, 0x01, 0x83, 0xF7})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, []byte{0x7E, 0x7F, 0x09, 0x01}, evs[0].SysEx)
	assert.EqualValues(t, 3, evs[0].Timestamp)
}

func TestDecode_SysExTimestampByteEqualToEnd(t *testing.T) {
	// 0xF7 as a timestamp (low 0x77) directly followed by the real end marker.
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x80, 0xF0, 0x01, 0xF7, 0xF7})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, []byte{0x01}, evs[0].SysEx)
	assert.EqualValues(t, 0x77, evs[0].Timestamp)
}

func TestDecode_SysExAbort(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode([]byte{0x80, 0x80, 0xF0, 0x01, 0x02, 0x81, 0x90, 0x40, 0x7F})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, contracts.NoteOn, evs[0].Kind)

	st := d.State()
	assert.False(t, st.InSysEx)
	assert.Len(t, st.SysEx, 0)
	assert.EqualValues(t, 0x90, st.RunningStatus)
}

func TestDecode_RealtimeInsideSysEx(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x80, 0xF0, 0x01, 0x81, 0xF8, 0x02, 0x82, 0xF7})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, contracts.TimingClock, evs[0].Kind)
	assert.Equal(t, contracts.SystemExclusive, evs[1].Kind)
	assert.Equal(t, []byte{0x01, 0x02}, evs[1].SysEx)
}

func TestDecode_RealtimeKeepsRunningStatus(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x80, 0x90, 0x40, 0x7F, 0x81, 0xFA, 0x82, 0x41, 0x00})
	require.NoError(t, err)
	require.Len(t, evs, 3)
	assert.Equal(t, contracts.NoteOn, evs[0].Kind)
	assert.Equal(t, contracts.Start, evs[1].Kind)
	assert.Equal(t, contracts.NoteOn, evs[2].Kind)
	assert.EqualValues(t, 0x41, evs[2].Data1)
}

func TestDecode_RealtimeKinds(t *testing.T) {
	payload := []byte{0x80, 0x80, 0xF8, 0x80, 0xFA, 0x80, 0xFB, 0x80, 0xFC, 0x80, 0xFE, 0x80, 0xFF, 0x80, 0xF9, 0x80, 0xFD}
	evs, err := NewPacketDecoder().Decode(payload)
	require.NoError(t, err)
	var kinds []contracts.Kind
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []contracts.Kind{
		contracts.TimingClock, contracts.Start, contracts.Continue,
		contracts.Stop, contracts.ActiveSensing, contracts.Reset,
	}, kinds)
}

func TestDecode_SystemCommon(t *testing.T) {
	payload := []byte{0x80,
		0x80, 0xF2, 0x10, 0x02,
		0x81, 0xF3, 0x05,
		0x82, 0xF6,
		0x83, 0xF1, 0x21,
	}
	evs, err := NewPacketDecoder().Decode(payload)
	require.NoError(t, err)
	require.Len(t, evs, 4)
	assert.Equal(t, contracts.SongPosition, evs[0].Kind)
	assert.EqualValues(t, 0x02<<7|0x10, evs[0].SongPositionValue())
	assert.Equal(t, contracts.SongSelect, evs[1].Kind)
	assert.EqualValues(t, 5, evs[1].Data1)
	assert.Equal(t, contracts.TuneRequest, evs[2].Kind)
	assert.Equal(t, contracts.TimeCodeQuarterFrame, evs[3].Kind)
	assert.EqualValues(t, 0x21, evs[3].Data1)
}

func TestDecode_SystemCommonClearsRunningStatus(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode([]byte{0x80, 0x80, 0x90, 0x40, 0x7F, 0x81, 0xF6, 0x82, 0x41, 0x7F})
	require.ErrorIs(t, err, ErrUnexpectedContinuation)
	require.Len(t, evs, 2)
	assert.Equal(t, contracts.TuneRequest, evs[1].Kind)
	assert.EqualValues(t, 0, d.State().RunningStatus)
}

func TestDecode_SysExStartClearsRunningStatus(t *testing.T) {
	d := NewPacketDecoder()
	_, err := d.Decode([]byte{0x80, 0x80, 0x90, 0x40, 0x7F, 0x81, 0xF0, 0x01, 0x82, 0xF7})
	require.NoError(t, err)
	_, err = d.Decode([]byte{0x80, 0x83, 0x41, 0x7F})
	assert.ErrorIs(t, err, ErrUnexpectedContinuation)
}

func TestDecode_MalformedHeaderLeavesStateUntouched(t *testing.T) {
	d := NewPacketDecoder()
	_, err := d.Decode([]byte{0x82, 0x90, 0xF0, 0x01, 0x02})
	require.NoError(t, err)
	_, err = d.Decode([]byte{0x82, 0x91, 0x90, 0x40, 0x7F, 0x92, 0xF0, 0x05})
	require.NoError(t, err)
	before := d.State()

	evs, err := d.Decode([]byte{0x00, 0x80, 0x90, 0x40, 0x7F})
	require.ErrorIs(t, err, ErrMalformedHeader)
	assert.Empty(t, evs)
	assert.Equal(t, before, d.State())
}

func TestDecode_UnexpectedContinuation(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode([]byte{0x80, 0x80, 0x40, 0x7F})
	require.ErrorIs(t, err, ErrUnexpectedContinuation)
	assert.Empty(t, evs)

	evs, err = d.Decode([]byte{0x80, 0x80, 0xC0, 0x05, 0x81, 0xF7, 0x90, 0x40, 0x7F})
	require.ErrorIs(t, err, ErrUnexpectedContinuation)
	require.Len(t, evs, 1)
	assert.Equal(t, contracts.ProgramChange, evs[0].Kind)
	assert.EqualValues(t, 0xC0, d.State().RunningStatus)
}

func TestDecode_TruncatedMessageIsDropped(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode([]byte{0x80, 0x80, 0x90, 0x40})
	require.ErrorIs(t, err, ErrTruncatedMessage)
	assert.Empty(t, evs)

	st := d.State()
	assert.EqualValues(t, 0x90, st.RunningStatus)
	assert.True(t, st.HasTimestamp)

	// The dropped data byte is not completed by the next payload.
	evs, err = d.Decode([]byte{0x80, 0x81, 0x41, 0x7F})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.EqualValues(t, 0x41, evs[0].Data1)
	assert.EqualValues(t, 0x7F, evs[0].Data2)
}

func TestDecode_TruncatedByStatusByte(t *testing.T) {
	evs, err := NewPacketDecoder().Decode([]byte{0x80, 0x80, 0xF8, 0x81, 0xB0, 0x07, 0x82, 0xF8})
	require.ErrorIs(t, err, ErrTruncatedMessage)
	require.Len(t, evs, 1)
	assert.Equal(t, contracts.TimingClock, evs[0].Kind)
}

func TestDecode_EmptyAndHeaderOnly(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode(nil)
	assert.NoError(t, err)
	assert.Empty(t, evs)

	evs, err = d.Decode([]byte{0x80})
	assert.NoError(t, err)
	assert.Empty(t, evs)
}

func TestDecode_UndefinedSystemCommonIsSkipped(t *testing.T) {
	d := NewPacketDecoder()
	evs, err := d.Decode([]byte{0x80, 0x80, 0x90, 0x40, 0x7F, 0x81, 0xF4, 0x82, 0xF8})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, contracts.TimingClock, evs[1].Kind)
	assert.EqualValues(t, 0, d.State().RunningStatus)
}

func TestPacketDecoder_Reset(t *testing.T) {
	d := NewPacketDecoder()
	_, err := d.Decode([]byte{0x80, 0x80, 0xF0, 0x01, 0x02})
	require.NoError(t, err)
	d.Reset()
	assert.Equal(t, DecoderState{}, d.State())
}

func TestDecoderState_CloneIsDeep(t *testing.T) {
	st := DecoderState{InSysEx: true, SysEx: []byte{1, 2}}
	c := st.Clone()
	c.SysEx[0] = 9
	assert.EqualValues(t, 1, st.SysEx[0])
}
