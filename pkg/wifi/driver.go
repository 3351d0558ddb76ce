package wifi

import (
	"context"
	"errors"
)

// Driver errors.
var (
	// ErrConnectFailed indicates the join attempt did not complete.
	ErrConnectFailed = errors.New("wifi connect failed")

	// ErrNotConnected indicates no active association.
	ErrNotConnected = errors.New("wifi not connected")
)

// SecurityType enumerates station security modes.
type SecurityType uint8

const (
	SecurityOpen SecurityType = iota
	SecurityWEP
	SecurityWPA
	SecurityWPA2
	SecurityWPA2Enterprise
	SecurityWPA3
)

// String returns the security type name.
func (s SecurityType) String() string {
	switch s {
	case SecurityOpen:
		return "OPEN"
	case SecurityWEP:
		return "WEP"
	case SecurityWPA:
		return "WPA"
	case SecurityWPA2:
		return "WPA2"
	case SecurityWPA2Enterprise:
		return "WPA2_ENTERPRISE"
	case SecurityWPA3:
		return "WPA3"
	default:
		return "UNKNOWN"
	}
}

// ParseSecurityType maps a credential security string to a type.
// Unknown strings default to WPA2.
func ParseSecurityType(s string) SecurityType {
	switch s {
	case "OPEN", "open":
		return SecurityOpen
	case "WEP", "wep":
		return SecurityWEP
	case "WPA", "wpa":
		return SecurityWPA
	case "WPA3", "wpa3":
		return SecurityWPA3
	case "WPA2_ENTERPRISE", "wpa2_enterprise":
		return SecurityWPA2Enterprise
	default:
		return SecurityWPA2
	}
}

// DisconnectReason enumerates why an association ended.
type DisconnectReason uint8

const (
	ReasonUnknown DisconnectReason = iota
	ReasonUserRequested
	ReasonConnectionTimeout
	ReasonAuthenticationFailed
	ReasonSSIDNotFound
	ReasonWeakSignal
	ReasonAPDisconnected
	ReasonDHCPFailed
)

// String returns the reason name.
func (r DisconnectReason) String() string {
	switch r {
	case ReasonUserRequested:
		return "USER_REQUESTED"
	case ReasonConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case ReasonAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case ReasonSSIDNotFound:
		return "SSID_NOT_FOUND"
	case ReasonWeakSignal:
		return "WEAK_SIGNAL"
	case ReasonAPDisconnected:
		return "AP_DISCONNECTED"
	case ReasonDHCPFailed:
		return "DHCP_FAILED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionInfo describes an active association.
type ConnectionInfo struct {
	SSID      string
	IPAddress string
	Gateway   string
	RSSI      int8
	Channel   uint8
}

// ConnectedFunc receives link-up events.
type ConnectedFunc func(info ConnectionInfo)

// DisconnectedFunc receives link-down events.
type DisconnectedFunc func(reason DisconnectReason, message string)

// Driver is the station contract the orchestrator consumes. Connect
// blocks until the association succeeds, fails, or ctx expires; the
// caller bounds ctx with the configured connect timeout.
type Driver interface {
	Connect(ctx context.Context, ssid, password string) error
	Disconnect() error
	IsConnected() bool

	// OnConnected registers the link-up sink.
	OnConnected(fn ConnectedFunc)

	// OnDisconnected registers the link-down sink.
	OnDisconnected(fn DisconnectedFunc)
}
