package contracts

// DeviceInfo contains information about a local MIDI destination.
type DeviceInfo struct {
	Name         string // Device name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}

// MIDIOutput forwards decoded events to a MIDI destination of the host OS.
type MIDIOutput interface {
	Consumer
	Stop() error                             // Closes the destination and releases resources.
	ListDestinations() ([]DeviceInfo, error) // Lists all available MIDI destinations.
	SelectDestination(deviceID int) error    // Selects the destination events are sent to.
}
