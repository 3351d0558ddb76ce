package provisioning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SecurityLevel selects the channel protection profile.
type SecurityLevel uint8

const (
	// SecurityNone disables encryption. Development only.
	SecurityNone SecurityLevel = iota

	// SecurityBasic uses simple pairing without a derived session.
	SecurityBasic

	// SecuritySecure uses ECDH key agreement with AES encryption.
	SecuritySecure

	// SecurityEnterprise adds certificate pinning on top of Secure.
	SecurityEnterprise
)

// String returns the security level name.
func (s SecurityLevel) String() string {
	switch s {
	case SecurityNone:
		return "NONE"
	case SecurityBasic:
		return "BASIC"
	case SecuritySecure:
		return "SECURE"
	case SecurityEnterprise:
		return "ENTERPRISE"
	default:
		return "UNKNOWN"
	}
}

// UnmarshalYAML parses a security level name.
func (s *SecurityLevel) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	switch name {
	case "none", "NONE":
		*s = SecurityNone
	case "basic", "BASIC":
		*s = SecurityBasic
	case "secure", "SECURE":
		*s = SecuritySecure
	case "enterprise", "ENTERPRISE":
		*s = SecurityEnterprise
	default:
		return fmt.Errorf("unknown security level %q", name)
	}
	return nil
}

// Config errors.
var (
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the provisioning configuration, immutable after the
// orchestrator is constructed.
type Config struct {
	// DeviceName is the advertised BLE name.
	DeviceName string `yaml:"device_name"`

	// SecurityLevel selects the channel protection profile.
	SecurityLevel SecurityLevel `yaml:"security_level"`

	// PinCode is the out-of-band pairing PIN.
	PinCode string `yaml:"pin_code"`

	// AuthTimeout bounds the key exchange after a central connects.
	AuthTimeout time.Duration `yaml:"auth_timeout"`

	// SessionTimeout bounds the lifetime of a derived session key.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// WifiConnectTimeout bounds a single join attempt.
	WifiConnectTimeout time.Duration `yaml:"wifi_connect_timeout"`

	// WifiMaxRetries is how many times a failed join is re-attempted.
	WifiMaxRetries int `yaml:"wifi_max_retries"`

	// WifiRetryDelay is the base delay between join attempts.
	WifiRetryDelay time.Duration `yaml:"wifi_retry_delay"`

	// AutoReconnect re-joins the persisted network on boot before
	// opening BLE advertising.
	AutoReconnect bool `yaml:"auto_reconnect"`

	// PersistCredentials stores credentials after provisioning.
	PersistCredentials bool `yaml:"persist_credentials"`

	// EnablePFS regenerates the ephemeral keypair on every session
	// teardown.
	EnablePFS bool `yaml:"enable_pfs"`

	// MTUSize is the requested BLE MTU.
	MTUSize int `yaml:"mtu_size"`

	// MaxConnections bounds simultaneous centrals. The protocol
	// serves exactly one peer at a time.
	MaxConnections int `yaml:"max_connections"`
}

// rawConfig mirrors Config for YAML decoding. Durations are strings
// ("10s", "5m") because yaml.v3 has no native time.Duration support;
// pointers distinguish absent keys from zero values so a partial file
// overlays the defaults.
type rawConfig struct {
	DeviceName         *string        `yaml:"device_name"`
	SecurityLevel      *SecurityLevel `yaml:"security_level"`
	PinCode            *string        `yaml:"pin_code"`
	AuthTimeout        *string        `yaml:"auth_timeout"`
	SessionTimeout     *string        `yaml:"session_timeout"`
	WifiConnectTimeout *string        `yaml:"wifi_connect_timeout"`
	WifiMaxRetries     *int           `yaml:"wifi_max_retries"`
	WifiRetryDelay     *string        `yaml:"wifi_retry_delay"`
	AutoReconnect      *bool          `yaml:"auto_reconnect"`
	PersistCredentials *bool          `yaml:"persist_credentials"`
	EnablePFS          *bool          `yaml:"enable_pfs"`
	MTUSize            *int           `yaml:"mtu_size"`
	MaxConnections     *int           `yaml:"max_connections"`
}

// UnmarshalYAML overlays the decoded keys onto the current values.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.DeviceName != nil {
		c.DeviceName = *raw.DeviceName
	}
	if raw.SecurityLevel != nil {
		c.SecurityLevel = *raw.SecurityLevel
	}
	if raw.PinCode != nil {
		c.PinCode = *raw.PinCode
	}
	if raw.WifiMaxRetries != nil {
		c.WifiMaxRetries = *raw.WifiMaxRetries
	}
	if raw.AutoReconnect != nil {
		c.AutoReconnect = *raw.AutoReconnect
	}
	if raw.PersistCredentials != nil {
		c.PersistCredentials = *raw.PersistCredentials
	}
	if raw.EnablePFS != nil {
		c.EnablePFS = *raw.EnablePFS
	}
	if raw.MTUSize != nil {
		c.MTUSize = *raw.MTUSize
	}
	if raw.MaxConnections != nil {
		c.MaxConnections = *raw.MaxConnections
	}

	durations := []struct {
		src *string
		dst *time.Duration
		key string
	}{
		{raw.AuthTimeout, &c.AuthTimeout, "auth_timeout"},
		{raw.SessionTimeout, &c.SessionTimeout, "session_timeout"},
		{raw.WifiConnectTimeout, &c.WifiConnectTimeout, "wifi_connect_timeout"},
		{raw.WifiRetryDelay, &c.WifiRetryDelay, "wifi_retry_delay"},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DeviceName:         "WiBLE_Device",
		SecurityLevel:      SecuritySecure,
		PinCode:            "000000",
		AuthTimeout:        30 * time.Second,
		SessionTimeout:     5 * time.Minute,
		WifiConnectTimeout: 20 * time.Second,
		WifiMaxRetries:     3,
		WifiRetryDelay:     2 * time.Second,
		AutoReconnect:      true,
		PersistCredentials: true,
		EnablePFS:          true,
		MTUSize:            512,
		MaxConnections:     1,
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("%w: device name is empty", ErrInvalidConfig)
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("%w: auth timeout must be positive", ErrInvalidConfig)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("%w: session timeout must be positive", ErrInvalidConfig)
	}
	if c.WifiConnectTimeout <= 0 {
		return fmt.Errorf("%w: wifi connect timeout must be positive", ErrInvalidConfig)
	}
	if c.WifiMaxRetries < 0 {
		return fmt.Errorf("%w: wifi max retries is negative", ErrInvalidConfig)
	}
	if c.MTUSize < 23 {
		return fmt.Errorf("%w: mtu %d below minimum", ErrInvalidConfig, c.MTUSize)
	}
	if c.MaxConnections != 1 {
		return fmt.Errorf("%w: exactly one connection is supported", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
