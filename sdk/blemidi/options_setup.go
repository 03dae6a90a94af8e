package blemidi

import (
	"github.com/leandrodaf/blemidi/internal/logger"
	"github.com/leandrodaf/blemidi/sdk/contracts"
)

// DefaultCoreMIDIClientName names the CoreMIDI client of the macOS output.
const DefaultCoreMIDIClientName = "BLE MIDI Bridge"

// ApplyDefaultOptions sets default values for ClientOptions if not explicitly provided.
// LogLevel and LogFilePath configure the zap logger created here; a logger
// supplied with WithLogger is used as-is, so constructors sharing it never
// reconfigure or reopen its sink.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
func ApplyDefaultOptions(opts ...contracts.Option) contracts.ClientOptions {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
		// InfoLevel is the zero value, so an unset level keeps the default.
		options.Logger.SetLevel(options.LogLevel)
		if options.LogFilePath != "" {
			options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
		}
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultCoreMIDIClientName}
	}
	return *options
}
