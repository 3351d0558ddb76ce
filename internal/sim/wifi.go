package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wible-protocol/wible-go/pkg/wifi"
)

// WifiDriver is an in-process wifi.Driver with a configurable network
// table. Connect succeeds when the SSID is known and the password
// matches, after an optional simulated join latency.
type WifiDriver struct {
	mu sync.Mutex

	networks  map[string]string
	connected bool
	current   wifi.ConnectionInfo
	latency   time.Duration

	onConnected    wifi.ConnectedFunc
	onDisconnected wifi.DisconnectedFunc
}

// NewWifiDriver creates a simulated station with no known networks.
func NewWifiDriver() *WifiDriver {
	return &WifiDriver{networks: make(map[string]string)}
}

// AddNetwork registers a joinable network.
func (d *WifiDriver) AddNetwork(ssid, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.networks[ssid] = password
}

// SetLatency sets the simulated join latency.
func (d *WifiDriver) SetLatency(latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
}

// Connect joins a registered network, honoring ctx.
func (d *WifiDriver) Connect(ctx context.Context, ssid, password string) error {
	d.mu.Lock()
	latency := d.latency
	stored, known := d.networks[ssid]
	d.mu.Unlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", wifi.ErrConnectFailed, ctx.Err())
		case <-t.C:
		}
	}

	if !known {
		d.fireDisconnected(wifi.ReasonSSIDNotFound, "network not found: "+ssid)
		return fmt.Errorf("%w: network %q not found", wifi.ErrConnectFailed, ssid)
	}
	if stored != password {
		d.fireDisconnected(wifi.ReasonAuthenticationFailed, "authentication failed")
		return fmt.Errorf("%w: authentication failed", wifi.ErrConnectFailed)
	}

	info := wifi.ConnectionInfo{
		SSID:      ssid,
		IPAddress: "192.168.1.120",
		Gateway:   "192.168.1.1",
		RSSI:      -52,
		Channel:   6,
	}

	d.mu.Lock()
	d.connected = true
	d.current = info
	fn := d.onConnected
	d.mu.Unlock()

	if fn != nil {
		fn(info)
	}
	return nil
}

// Disconnect drops the simulated association.
func (d *WifiDriver) Disconnect() error {
	d.mu.Lock()
	wasConnected := d.connected
	d.connected = false
	d.mu.Unlock()

	if wasConnected {
		d.fireDisconnected(wifi.ReasonUserRequested, "disconnect requested")
	}
	return nil
}

// IsConnected reports simulated association state.
func (d *WifiDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// OnConnected registers the link-up sink.
func (d *WifiDriver) OnConnected(fn wifi.ConnectedFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onConnected = fn
}

// OnDisconnected registers the link-down sink.
func (d *WifiDriver) OnDisconnected(fn wifi.DisconnectedFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDisconnected = fn
}

// DropLink simulates an access point disconnect.
func (d *WifiDriver) DropLink() {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	d.fireDisconnected(wifi.ReasonAPDisconnected, "link lost")
}

func (d *WifiDriver) fireDisconnected(reason wifi.DisconnectReason, msg string) {
	d.mu.Lock()
	fn := d.onDisconnected
	d.mu.Unlock()
	if fn != nil {
		fn(reason, msg)
	}
}

// Compile-time interface satisfaction check.
var _ wifi.Driver = (*WifiDriver)(nil)
