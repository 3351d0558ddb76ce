package sim

import (
	"sync"

	"github.com/wible-protocol/wible-go/pkg/gatt"
)

// Notification is one captured notify.
type Notification struct {
	Characteristic string
	Data           []byte
}

// GATTServer is an in-process gatt.Server. The "central" side is
// driven through CentralConnect, CentralWrite, and CentralDisconnect;
// notifications are captured and exposed through Notifications and an
// optional channel.
type GATTServer struct {
	mu sync.Mutex

	advertising bool
	connected   bool
	peer        string
	mtu         int

	onWrite      gatt.WriteFunc
	onConnect    gatt.ConnectFunc
	onDisconnect gatt.DisconnectFunc

	notifications []Notification
	notifyCh      chan Notification
}

// NewGATTServer creates a simulated GATT server.
func NewGATTServer() *GATTServer {
	return &GATTServer{
		mtu:      512,
		notifyCh: make(chan Notification, 64),
	}
}

// StartAdvertising opens the simulated service.
func (s *GATTServer) StartAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advertising = true
	return nil
}

// StopAdvertising closes the simulated service.
func (s *GATTServer) StopAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advertising = false
	return nil
}

// DisconnectPeer drops the simulated central.
func (s *GATTServer) DisconnectPeer() error {
	s.mu.Lock()
	peer := s.peer
	connected := s.connected
	s.connected = false
	fn := s.onDisconnect
	s.mu.Unlock()

	if connected && fn != nil {
		fn(peer, 0)
	}
	return nil
}

// MTU returns the simulated MTU.
func (s *GATTServer) MTU() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mtu
}

// SetMTU changes the simulated MTU.
func (s *GATTServer) SetMTU(mtu int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mtu = mtu
}

// Notify captures a notification.
func (s *GATTServer) Notify(characteristicUUID string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	n := Notification{Characteristic: characteristicUUID, Data: buf}

	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()

	select {
	case s.notifyCh <- n:
	default:
	}
	return nil
}

// OnWrite registers the write sink.
func (s *GATTServer) OnWrite(fn gatt.WriteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = fn
}

// OnConnect registers the connection sink.
func (s *GATTServer) OnConnect(fn gatt.ConnectFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnect = fn
}

// OnDisconnect registers the disconnection sink.
func (s *GATTServer) OnDisconnect(fn gatt.DisconnectFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// CentralConnect simulates a central connecting.
func (s *GATTServer) CentralConnect(peerAddress string) {
	s.mu.Lock()
	s.connected = true
	s.peer = peerAddress
	fn := s.onConnect
	s.mu.Unlock()

	if fn != nil {
		fn(peerAddress)
	}
}

// CentralWrite simulates the central writing a characteristic.
func (s *GATTServer) CentralWrite(characteristicUUID string, data []byte) {
	s.mu.Lock()
	fn := s.onWrite
	s.mu.Unlock()

	if fn != nil {
		fn(characteristicUUID, data)
	}
}

// CentralDisconnect simulates the central dropping the link.
func (s *GATTServer) CentralDisconnect(reason uint8) {
	s.mu.Lock()
	peer := s.peer
	s.connected = false
	fn := s.onDisconnect
	s.mu.Unlock()

	if fn != nil {
		fn(peer, reason)
	}
}

// Notifications returns the captured notifications.
func (s *GATTServer) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// NotifyChan exposes notifications as they arrive.
func (s *GATTServer) NotifyChan() <-chan Notification {
	return s.notifyCh
}

// Advertising reports whether the service is open.
func (s *GATTServer) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// Compile-time interface satisfaction check.
var _ gatt.Server = (*GATTServer)(nil)
