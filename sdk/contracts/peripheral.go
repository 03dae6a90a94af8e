package contracts

// PeripheralHandle identifies a connected BLE peripheral. It is owned by the
// transport; channels only keep a reference to it.
type PeripheralHandle struct {
	ID      string // Transport-scoped identity, used as the routing key.
	Address string // Bluetooth address.
	Name    string // Advertised local name, may be empty.
}

func (p PeripheralHandle) String() string {
	if p.Name != "" {
		return p.Name + " (" + p.Address + ")"
	}
	return p.Address
}

// GattDescriptor describes a discovered characteristic descriptor.
type GattDescriptor struct {
	UUID string
}

// CharacteristicDescriptor describes a discovered GATT characteristic.
type CharacteristicDescriptor struct {
	UUID        string
	Notify      bool // Supports notifications.
	Write       bool // Supports write (with or without response).
	Descriptors []GattDescriptor
}

// ServiceDescriptor describes a discovered GATT service.
type ServiceDescriptor struct {
	UUID            string
	Characteristics []CharacteristicDescriptor
}

// Transport is the radio stack side of a connection. Calls are requests the
// core issues; the transport executes them for the peripheral it is bound to.
type Transport interface {
	// SetNotifyEnabled turns notification delivery for a characteristic on or off.
	SetNotifyEnabled(characteristic CharacteristicDescriptor, enabled bool) error
	// WriteDescriptor writes value to a characteristic descriptor.
	WriteDescriptor(characteristic CharacteristicDescriptor, descriptor GattDescriptor, value []byte) error
	// ReadCharacteristic requests a read of the characteristic value.
	ReadCharacteristic(characteristic CharacteristicDescriptor) error
}

// EnableNotificationValue returns the client characteristic configuration
// value that turns notifications on. Each call returns a fresh slice.
func EnableNotificationValue() []byte {
	return []byte{0x01, 0x00}
}
