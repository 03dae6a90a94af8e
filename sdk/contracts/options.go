package contracts

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// DecodeErrorHandler is called once per payload that failed to decode.
type DecodeErrorHandler func(peripheral PeripheralHandle, err error)

// ClientOptions defines the configuration options shared by channels, the
// central registry and MIDI outputs.
type ClientOptions struct {
	Logger             Logger             // Logger for logging events and errors.
	LogLevel           LogLevel           // Level of logging to use.
	LogFilePath        string             // File path for logging if file logging is enabled.
	EventFilter        *EventFilter       // Optional filter for delivered event kinds.
	DecodeErrorHandler DecodeErrorHandler // Optional diagnostic callback for decode errors.
	CoreMIDIConfig     *CoreMIDIConfig    // Configuration specific to CoreMIDI.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to a file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithEventFilter restricts the event kinds delivered to consumers.
func WithEventFilter(filter EventFilter) Option {
	return func(opts *ClientOptions) {
		opts.EventFilter = &filter
	}
}

// WithDecodeErrorHandler registers a callback for payloads that fail to decode.
func WithDecodeErrorHandler(h DecodeErrorHandler) Option {
	return func(opts *ClientOptions) {
		opts.DecodeErrorHandler = h
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the macOS output.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}
