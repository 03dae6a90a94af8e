package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/blemidi/internal/midi/mididarwin"
	"github.com/leandrodaf/blemidi/internal/midi/midiwindows"
	"github.com/leandrodaf/blemidi/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no MIDI output.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// outputInitializers maps OS names to corresponding MIDI output initializers.
var outputInitializers = map[string]func(*contracts.ClientOptions) (contracts.MIDIOutput, error){
	"darwin":  mididarwin.NewMIDIOutput,  // macOS (Darwin) CoreMIDI output.
	"windows": midiwindows.NewMIDIOutput, // Windows winmm output.
}

// NewOutput initializes a MIDI output for the current operating system.
// It supports macOS (Darwin) and Windows, returning ErrUnsupportedOS otherwise.
//
// opts *contracts.ClientOptions: Configuration options for the MIDI output.
//
// Returns:
//   - contracts.MIDIOutput: The OS MIDI output.
//   - error: An error if the operating system is unsupported or if initialization fails.
func NewOutput(opts *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	return newOutputFor(runtime.GOOS, opts)
}

func newOutputFor(goos string, opts *contracts.ClientOptions) (contracts.MIDIOutput, error) {
	if initializer, exists := outputInitializers[goos]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
