package gatt

// Provisioning service and characteristic UUIDs. All characteristics
// live in the same 128-bit family and differ in the penultimate nibble
// of the first group.
const (
	// ServiceUUID identifies the provisioning GATT service.
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"

	// CredentialsCharUUID receives key-exchange and credential frames.
	// Write only.
	CredentialsCharUUID = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"

	// StatusCharUUID carries status notifications to the peer.
	// Notify only.
	StatusCharUUID = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"

	// ControlCharUUID receives single-byte command codes. Write only.
	ControlCharUUID = "6e400004-b5a3-f393-e0a9-e50e24dcca9e"

	// DataCharUUID is reserved for post-provisioning traffic.
	// Read, write, and notify.
	DataCharUUID = "6e400005-b5a3-f393-e0a9-e50e24dcca9e"
)

// Standard device-information service UUIDs advertised alongside the
// provisioning service.
const (
	DeviceInfoServiceUUID   = "180a"
	DeviceNameCharUUID      = "2a00"
	ManufacturerCharUUID    = "2a29"
	FirmwareVersionCharUUID = "2a26"
)

// Control command codes written to the control characteristic.
const (
	// CommandScan requests a Wi-Fi scan. Advisory.
	CommandScan byte = 0x01

	// CommandReset aborts the ceremony and returns the device to Idle.
	CommandReset byte = 0x02

	// CommandFactory requests a factory reset. Advisory.
	CommandFactory byte = 0x03
)

// ATTHeaderSize is the ATT header overhead per link-layer frame; the
// usable payload per notification is MTU minus this.
const ATTHeaderSize = 3

// PayloadCapacity returns the usable payload size for a given MTU.
func PayloadCapacity(mtu int) int {
	if mtu <= ATTHeaderSize {
		return 0
	}
	return mtu - ATTHeaderSize
}
