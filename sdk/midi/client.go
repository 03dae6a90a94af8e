// Package midi forwards decoded BLE-MIDI events to a MIDI destination of the
// host operating system.
package midi

import (
	"github.com/leandrodaf/blemidi/sdk/blemidi"
	"github.com/leandrodaf/blemidi/sdk/contracts"
)

// NewMIDIOutput creates the OS MIDI output with the specified options.
// It applies default options and initializes the output. The result is a
// contracts.Consumer, so it can be handed straight to an InputChannel or a
// blemidi.Central.
//
// opts ...contracts.Option: A variadic list of option functions to customize the output configuration.
//
// Returns:
//   - contracts.MIDIOutput: An instance of the MIDI output.
//   - error: An error, if any occurred during the creation of the output.
func NewMIDIOutput(opts ...contracts.Option) (contracts.MIDIOutput, error) {
	options := blemidi.ApplyDefaultOptions(opts...)

	output, err := NewOutput(&options)
	if err != nil {
		options.Logger.Error("Failed to initialize MIDI output", options.Logger.Field().Error("error", err))
		return nil, err
	}

	return output, nil
}
