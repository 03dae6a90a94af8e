package midiwindows

import "unsafe"

// shortMessage packs a channel, system common or realtime message into the
// little-endian word midiOutShortMsg expects. Longer messages, system
// exclusive included, need midiOutLongMsg.
func shortMessage(b []byte) (uint32, bool) {
	if len(b) == 0 || len(b) > 3 {
		return 0, false
	}
	var msg uint32
	for i, x := range b {
		msg |= uint32(x) << (8 * i)
	}
	return msg, true
}

// Struct describing a system exclusive buffer
type midiHdr struct {
	lpData          uintptr
	dwBufferLength  uint32
	dwBytesRecorded uint32
	dwUser          uintptr
	dwFlags         uint32
	lpNext          uintptr
	reserved        uintptr
	dwOffset        uint32
	dwReserved      [8]uintptr
}

// newSysExHeader describes data for midiOutLongMsg. The header is heap
// allocated; the caller keeps data and the header alive until the driver
// has released them.
func newSysExHeader(data []byte) *midiHdr {
	hdr := &midiHdr{dwBufferLength: uint32(len(data))}
	if len(data) > 0 {
		hdr.lpData = uintptr(unsafe.Pointer(&data[0]))
	}
	return hdr
}
