package parser

import "github.com/leandrodaf/blemidi/sdk/contracts"

var channelKinds = [...]contracts.Kind{
	0x8: contracts.NoteOff,
	0x9: contracts.NoteOn,
	0xA: contracts.PolyPressure,
	0xB: contracts.ControlChange,
	0xC: contracts.ProgramChange,
	0xD: contracts.ChannelPressure,
	0xE: contracts.PitchBend,
}

var commonKinds = map[byte]contracts.Kind{
	0xF1: contracts.TimeCodeQuarterFrame,
	0xF2: contracts.SongPosition,
	0xF3: contracts.SongSelect,
	0xF6: contracts.TuneRequest,
}

// 0xF9 and 0xFD are undefined and dropped.
var realtimeKinds = map[byte]contracts.Kind{
	0xF8: contracts.TimingClock,
	0xFA: contracts.Start,
	0xFB: contracts.Continue,
	0xFC: contracts.Stop,
	0xFE: contracts.ActiveSensing,
	0xFF: contracts.Reset,
}

// dataLength is the number of data bytes following a status byte.
func dataLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0xF0:
		switch status {
		case 0xF1, 0xF3:
			return 1
		case 0xF2:
			return 2
		default:
			return 0
		}
	default:
		return 2
	}
}

// eventFor builds the event for a complete message. Undefined system common
// statuses produce no event.
func eventFor(status byte, data []byte) (contracts.Event, bool) {
	var ev contracts.Event
	if status < 0xF0 {
		ev.Kind = channelKinds[status>>4]
		ev.Channel = status & 0x0F
	} else {
		kind, ok := commonKinds[status]
		if !ok {
			return ev, false
		}
		ev.Kind = kind
	}
	if len(data) > 0 {
		ev.Data1 = data[0]
	}
	if len(data) > 1 {
		ev.Data2 = data[1]
	}
	return ev, true
}
