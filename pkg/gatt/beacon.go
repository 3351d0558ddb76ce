package gatt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Beacon layout constants for the iBeacon-compatible manufacturer data
// payload broadcast while advertising provisioning state.
const (
	// beaconCompanyID is the Apple company identifier, little-endian
	// on the wire as 0x4C 0x00.
	beaconCompanyID = 0x004C

	// beaconType and beaconLength are the fixed iBeacon type marker.
	beaconType   = 0x02
	beaconLength = 0x15

	// BeaconPayloadSize is the full manufacturer data size.
	BeaconPayloadSize = 25
)

// Beacon errors.
var (
	// ErrBadBeacon indicates a payload that is not an iBeacon frame.
	ErrBadBeacon = errors.New("invalid beacon payload")
)

// Beacon is the decoded advertising payload.
type Beacon struct {
	// UUID identifies the device family.
	UUID uuid.UUID

	// Major and Minor carry application state; the device uses Major
	// for the provisioning state and Minor for the error code.
	Major uint16
	Minor uint16

	// TxPower is the calibrated signal strength at one meter, signed.
	TxPower int8
}

// Encode serializes the beacon to manufacturer data:
// [0x4C 0x00][0x02 0x15][UUID(16)][Major BE][Minor BE][TxPower].
func (b Beacon) Encode() []byte {
	out := make([]byte, BeaconPayloadSize)
	out[0] = 0x4C
	out[1] = 0x00
	out[2] = beaconType
	out[3] = beaconLength
	copy(out[4:20], b.UUID[:])
	binary.BigEndian.PutUint16(out[20:22], b.Major)
	binary.BigEndian.PutUint16(out[22:24], b.Minor)
	out[24] = byte(b.TxPower)
	return out
}

// DecodeBeacon parses manufacturer data into a Beacon.
func DecodeBeacon(data []byte) (*Beacon, error) {
	if len(data) != BeaconPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadBeacon, len(data))
	}
	if binary.LittleEndian.Uint16(data[0:2]) != beaconCompanyID {
		return nil, fmt.Errorf("%w: company id %02x%02x", ErrBadBeacon, data[0], data[1])
	}
	if data[2] != beaconType || data[3] != beaconLength {
		return nil, fmt.Errorf("%w: type %02x length %02x", ErrBadBeacon, data[2], data[3])
	}

	b := &Beacon{
		Major:   binary.BigEndian.Uint16(data[20:22]),
		Minor:   binary.BigEndian.Uint16(data[22:24]),
		TxPower: int8(data[24]),
	}
	copy(b.UUID[:], data[4:20])
	return b, nil
}
