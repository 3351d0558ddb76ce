package state

// State represents a provisioning state.
type State uint8

const (
	// Idle indicates the device is booted but not provisioning.
	Idle State = iota

	// Advertising indicates the BLE radio is advertising the
	// provisioning service.
	Advertising

	// Connected indicates a BLE central has connected.
	Connected

	// Authenticating indicates the key exchange is in progress.
	Authenticating

	// ReceivingCredentials indicates the session is established and
	// the device is waiting for an encrypted credential frame.
	ReceivingCredentials

	// ConnectingWifi indicates a Wi-Fi join attempt is in progress.
	ConnectingWifi

	// ValidatingConnection indicates the Wi-Fi link is up and being
	// validated.
	ValidatingConnection

	// Provisioned indicates provisioning completed successfully.
	Provisioned

	// Error indicates an unrecoverable condition pending recovery.
	Error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Advertising:
		return "ADVERTISING"
	case Connected:
		return "CONNECTED"
	case Authenticating:
		return "AUTHENTICATING"
	case ReceivingCredentials:
		return "RECEIVING_CREDENTIALS"
	case ConnectingWifi:
		return "CONNECTING_WIFI"
	case ValidatingConnection:
		return "VALIDATING_CONNECTION"
	case Provisioned:
		return "PROVISIONED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal returns true for states that end the provisioning ceremony.
func (s State) IsTerminal() bool {
	return s == Provisioned
}

// IsError returns true for the error state.
func (s State) IsError() bool {
	return s == Error
}

// RequiresBLE returns true for states in which the BLE radio must be up.
func (s State) RequiresBLE() bool {
	switch s {
	case Advertising, Connected, Authenticating, ReceivingCredentials:
		return true
	default:
		return false
	}
}

// RequiresWifi returns true for states in which the Wi-Fi station must be up.
func (s State) RequiresWifi() bool {
	switch s {
	case ConnectingWifi, ValidatingConnection, Provisioned:
		return true
	default:
		return false
	}
}

// Event represents a state machine event.
type Event uint8

const (
	// Lifecycle events.
	EventInitRequested Event = iota
	EventResetRequested

	// BLE events.
	EventStartAdvertising
	EventStopAdvertising
	EventBleClientConnected
	EventBleClientDisconnected

	// Authentication events.
	EventAuthStarted
	EventAuthSuccess
	EventAuthFailed
	EventAuthTimeout

	// Credential events.
	EventCredentialsReceived
	EventCredentialsInvalid

	// Wi-Fi events.
	EventWifiConnectStarted
	EventWifiConnected
	EventWifiConnectionFailed
	EventWifiDisconnected

	// Validation events.
	EventValidationStarted
	EventValidationSuccess
	EventValidationFailed

	// Error events.
	EventErrorOccurred
	EventErrorRecovered

	// Timeout events.
	EventConnectionTimeout
	EventProvisioningTimeout
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventInitRequested:
		return "INIT_REQUESTED"
	case EventResetRequested:
		return "RESET_REQUESTED"
	case EventStartAdvertising:
		return "START_ADVERTISING"
	case EventStopAdvertising:
		return "STOP_ADVERTISING"
	case EventBleClientConnected:
		return "BLE_CLIENT_CONNECTED"
	case EventBleClientDisconnected:
		return "BLE_CLIENT_DISCONNECTED"
	case EventAuthStarted:
		return "AUTH_STARTED"
	case EventAuthSuccess:
		return "AUTH_SUCCESS"
	case EventAuthFailed:
		return "AUTH_FAILED"
	case EventAuthTimeout:
		return "AUTH_TIMEOUT"
	case EventCredentialsReceived:
		return "CREDENTIALS_RECEIVED"
	case EventCredentialsInvalid:
		return "CREDENTIALS_INVALID"
	case EventWifiConnectStarted:
		return "WIFI_CONNECT_STARTED"
	case EventWifiConnected:
		return "WIFI_CONNECTED"
	case EventWifiConnectionFailed:
		return "WIFI_CONNECTION_FAILED"
	case EventWifiDisconnected:
		return "WIFI_DISCONNECTED"
	case EventValidationStarted:
		return "VALIDATION_STARTED"
	case EventValidationSuccess:
		return "VALIDATION_SUCCESS"
	case EventValidationFailed:
		return "VALIDATION_FAILED"
	case EventErrorOccurred:
		return "ERROR_OCCURRED"
	case EventErrorRecovered:
		return "ERROR_RECOVERED"
	case EventConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case EventProvisioningTimeout:
		return "PROVISIONING_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}
