package provisioning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wible-protocol/wible-go/pkg/gatt"
	"github.com/wible-protocol/wible-go/pkg/log"
	"github.com/wible-protocol/wible-go/pkg/session"
	"github.com/wible-protocol/wible-go/pkg/state"
	"github.com/wible-protocol/wible-go/pkg/storage"
	"github.com/wible-protocol/wible-go/pkg/wifi"
)

// maxSessionFailures is how many crypto or parse failures one session
// tolerates before escalating to the error state.
const maxSessionFailures = 3

// timeoutCheckInterval is how often Run polls the machine deadlines.
const timeoutCheckInterval = 100 * time.Millisecond

// Callback types surfaced to the embedding application.
type (
	// DataFunc receives writes to the data characteristic.
	DataFunc func(data []byte)

	// CommandFunc receives advisory control commands.
	CommandFunc func(cmd byte)

	// StateChangeFunc receives machine transitions.
	StateChangeFunc func(oldState, newState state.State)

	// CompleteFunc receives the ceremony outcome and duration.
	CompleteFunc func(success bool, elapsed time.Duration)
)

// Metrics is a snapshot of ceremony counters.
type Metrics struct {
	Attempts        uint32
	Successes       uint32
	Failures        uint32
	BleDisconnects  uint32
	WifiDisconnects uint32
}

// Deps are the collaborators injected at construction. BLE and Wifi
// are required; Store and loggers are optional.
type Deps struct {
	BLE   gatt.Server
	Wifi  wifi.Driver
	Store storage.Store

	// ProtocolLogger receives machine-readable protocol events.
	ProtocolLogger log.Logger

	// Logger receives operational logging.
	Logger *slog.Logger
}

// Orchestrator is the control plane. It is the only mutator of the
// state machine and the crypto session; external events reach it
// through the serialized queue drained by Run, or through the
// synchronous Handle* methods on single-threaded platforms.
type Orchestrator struct {
	cfg Config

	machine *state.Machine
	crypto  *session.Crypto
	ble     gatt.Server
	driver  wifi.Driver
	creds   *storage.CredentialStore

	plog   log.Logger
	logger *slog.Logger

	queue  *eventQueue
	connID string

	failCount    int
	ceremonyFrom time.Time
	metrics      Metrics

	onError       ErrorFunc
	onData        DataFunc
	onCommand     CommandFunc
	onStateChange StateChangeFunc
	onComplete    CompleteFunc
}

// New constructs the orchestrator and wires the collaborators. The
// configuration is fixed from here on.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.BLE == nil || deps.Wifi == nil {
		return nil, fmt.Errorf("%w: BLE and Wifi collaborators are required", ErrInvalidConfig)
	}

	crypto, err := session.NewCrypto(session.Config{
		SessionTimeout: cfg.SessionTimeout,
		EnablePFS:      cfg.EnablePFS,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		crypto: crypto,
		ble:    deps.BLE,
		driver: deps.Wifi,
		plog:   deps.ProtocolLogger,
		logger: deps.Logger,
		queue:  newEventQueue(),
	}
	if o.plog == nil {
		o.plog = log.NoopLogger{}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Store != nil {
		o.creds = storage.NewCredentialStore(deps.Store)
	}

	o.machine = state.NewMachine()
	o.installTimeouts()
	o.machine.OnTransition(o.logTransition)
	o.machine.OnEntry(o.enterState)
	o.machine.OnTimeout(func(s state.State, elapsed time.Duration) {
		o.logger.Warn("state timed out", "state", s.String(), "elapsed", elapsed)
		o.reportError(ErrorTimeout, fmt.Sprintf("timeout in %s", s), true)
	})

	// Radio callbacks post to the queue; the machine and the session
	// are touched only from the loop.
	deps.BLE.OnWrite(func(char string, data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		o.queue.push(func() { o.HandleBLEWrite(char, buf) })
	})
	deps.BLE.OnConnect(func(peer string) {
		o.queue.push(func() { o.HandleBLEConnect(peer) })
	})
	deps.BLE.OnDisconnect(func(peer string, reason uint8) {
		o.queue.push(func() { o.HandleBLEDisconnect(peer, reason) })
	})
	deps.Wifi.OnConnected(func(info wifi.ConnectionInfo) {
		o.queue.push(func() { o.HandleWifiConnected(info) })
	})
	deps.Wifi.OnDisconnected(func(reason wifi.DisconnectReason, msg string) {
		o.queue.push(func() { o.HandleWifiDisconnected(reason, msg) })
	})

	return o, nil
}

// installTimeouts maps the configured windows onto machine deadlines.
// The key exchange is bounded from connection; the remaining ceremony
// is bounded by the session timeout.
func (o *Orchestrator) installTimeouts() {
	o.machine.SetStateTimeout(state.Connected, o.cfg.AuthTimeout, state.EventConnectionTimeout)
	o.machine.SetStateTimeout(state.Authenticating, o.cfg.AuthTimeout, state.EventConnectionTimeout)
	o.machine.SetStateTimeout(state.ReceivingCredentials, o.cfg.SessionTimeout, state.EventProvisioningTimeout)

	// Timeout transitions beyond the default table: a stalled
	// handshake returns to advertising, a stalled credential phase is
	// an error.
	_ = o.machine.AddTransition(state.Transition{
		From: state.Connected, Event: state.EventConnectionTimeout, To: state.Advertising,
	})
	_ = o.machine.AddTransition(state.Transition{
		From: state.Authenticating, Event: state.EventConnectionTimeout, To: state.Advertising,
	})
	_ = o.machine.AddTransition(state.Transition{
		From: state.ReceivingCredentials, Event: state.EventProvisioningTimeout, To: state.Error,
	})
}

// Machine exposes the state machine for inspection.
func (o *Orchestrator) Machine() *state.Machine { return o.machine }

// Crypto exposes the session layer for inspection.
func (o *Orchestrator) Crypto() *session.Crypto { return o.crypto }

// State returns the current provisioning state.
func (o *Orchestrator) State() state.State { return o.machine.Current() }

// Metrics returns a snapshot of the ceremony counters.
func (o *Orchestrator) Metrics() Metrics { return o.metrics }

// OnError registers the error callback.
func (o *Orchestrator) OnError(fn ErrorFunc) { o.onError = fn }

// OnData registers the data characteristic callback.
func (o *Orchestrator) OnData(fn DataFunc) { o.onData = fn }

// OnCommand registers the advisory control command callback.
func (o *Orchestrator) OnCommand(fn CommandFunc) { o.onCommand = fn }

// OnStateChange registers the transition callback.
func (o *Orchestrator) OnStateChange(fn StateChangeFunc) { o.onStateChange = fn }

// OnComplete registers the ceremony completion callback.
func (o *Orchestrator) OnComplete(fn CompleteFunc) { o.onComplete = fn }

// Start boots the device: optionally re-join the persisted network,
// then open BLE advertising when no link came up.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.cfg.AutoReconnect && o.creds != nil {
		if record, err := o.creds.Load(); err == nil {
			o.logger.Info("attempting reconnect to persisted network", "ssid", record.SSID)
			connectCtx, cancel := context.WithTimeout(ctx, o.cfg.WifiConnectTimeout)
			err := o.driver.Connect(connectCtx, record.SSID, record.Password)
			cancel()
			if err == nil {
				o.logger.Info("reconnected to persisted network", "ssid", record.SSID)
				return nil
			}
			o.logger.Warn("reconnect failed, falling back to provisioning", "error", err)
		}
	}
	return o.StartProvisioning()
}

// StartProvisioning opens BLE advertising for a new ceremony.
func (o *Orchestrator) StartProvisioning() error {
	if err := o.ble.StartAdvertising(); err != nil {
		o.reportError(ErrorBleInitFailed, err.Error(), false)
		return fmt.Errorf("failed to start advertising: %w", err)
	}
	o.machine.HandleEvent(state.EventStartAdvertising)
	return nil
}

// StopProvisioning closes advertising and tears down any session.
func (o *Orchestrator) StopProvisioning() {
	_ = o.ble.StopAdvertising()
	o.crypto.TerminateSession()
	o.machine.HandleEvent(state.EventStopAdvertising)
}

// Reset aborts the ceremony, wipes key material, and returns to Idle.
func (o *Orchestrator) Reset() {
	o.crypto.TerminateSession()
	o.failCount = 0
	o.machine.Reset()
}

// Run drains the event queue and polls machine deadlines until ctx is
// done. All state changes, crypto operations, and GATT callbacks
// execute on this loop.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(timeoutCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.queue.wake():
			for _, ev := range o.queue.drain(DrainBatchSize) {
				ev.fn()
			}
		case <-ticker.C:
			o.machine.CheckTimeouts()
		}
	}
}

// ProcessPending drains queued collaborator events on the caller's
// stack and checks machine deadlines. Single-threaded embedders call
// this from their own loop instead of Run.
func (o *Orchestrator) ProcessPending() {
	for {
		batch := o.queue.drain(DrainBatchSize)
		if len(batch) == 0 {
			break
		}
		for _, ev := range batch {
			ev.fn()
		}
	}
	o.machine.CheckTimeouts()
}

// HandleBLEConnect processes a central connection.
func (o *Orchestrator) HandleBLEConnect(peer string) {
	if !o.machine.HandleEvent(state.EventBleClientConnected) {
		o.logger.Warn("unexpected BLE connect", "peer", peer, "state", o.machine.Current().String())
		return
	}

	o.metrics.Attempts++
	o.ceremonyFrom = time.Now()
	o.connID = uuid.New().String()
	o.machine.Context().PeerAddress = peer

	if o.cfg.SecurityLevel >= SecuritySecure {
		if err := o.crypto.GenerateKeyPair(); err != nil {
			o.reportError(ErrorCryptoInitFailed, err.Error(), false)
			o.machine.HandleEventData(state.EventErrorOccurred, err.Error())
			return
		}
		o.logCrypto(log.CryptoKeyPairGenerated)
		return
	}

	// Unencrypted profiles have no key exchange; the ceremony moves
	// straight to the credential phase.
	o.machine.HandleEvent(state.EventAuthStarted)
	o.machine.HandleEvent(state.EventAuthSuccess)
}

// HandleBLEDisconnect processes a central disconnection. From any
// mid-handshake state the machine returns to advertising and the
// session is terminated, wiping key material.
func (o *Orchestrator) HandleBLEDisconnect(peer string, reason uint8) {
	o.metrics.BleDisconnects++

	transitioned := o.machine.HandleEvent(state.EventBleClientDisconnected)
	o.crypto.TerminateSession()
	o.logCrypto(log.CryptoSessionTerminated)
	o.failCount = 0
	o.machine.Context().Secure = false

	if transitioned {
		o.logger.Info("peer disconnected mid-ceremony",
			"peer", peer, "reason", reason, "state", o.machine.Current().String())
		o.reportError(ErrorBleConnectionLost, "peer disconnected", true)
	}
}

// HandleBLEWrite routes a characteristic write.
func (o *Orchestrator) HandleBLEWrite(characteristicUUID string, data []byte) {
	o.logFrame(log.DirectionIn, characteristicUUID, data)

	switch characteristicUUID {
	case gatt.CredentialsCharUUID:
		o.handleCredentialsWrite(data)
	case gatt.ControlCharUUID:
		o.handleControlWrite(data)
	case gatt.DataCharUUID:
		if o.onData != nil {
			o.onData(data)
		}
	default:
		o.logger.Debug("write to unknown characteristic", "uuid", characteristicUUID)
	}
}

// handleCredentialsWrite processes a write to the credentials
// characteristic: a public-key bootstrap frame before the session is
// established, an encrypted credential frame after.
func (o *Orchestrator) handleCredentialsWrite(data []byte) {
	if o.cfg.SecurityLevel < SecuritySecure {
		// Unencrypted profile: the payload is the plaintext document.
		o.machine.HandleEvent(state.EventCredentialsReceived)
		o.acceptCredentials(string(data))
		return
	}

	if !o.crypto.Established() {
		o.handleKeyExchange(data)
		return
	}

	frame, err := gatt.ParseCredentialFrame(data, true)
	if err != nil {
		o.recordSessionFailure(ErrorCryptoDecryptFailed, "Decryption failed")
		return
	}

	plaintext, err := o.crypto.Decrypt(&session.EncryptedMessage{
		IV:         frame.IV,
		Ciphertext: frame.Ciphertext,
		AuthTag:    frame.Tag,
	})
	if err != nil {
		o.logger.Warn("credential frame rejected", "error", err)
		o.recordSessionFailure(ErrorCryptoDecryptFailed, "Decryption failed")
		return
	}

	o.machine.HandleEvent(state.EventCredentialsReceived)
	o.acceptCredentials(string(plaintext))
}

// handleKeyExchange processes the public-key bootstrap frame and
// establishes the session.
func (o *Orchestrator) handleKeyExchange(data []byte) {
	frame, err := gatt.ParseCredentialFrame(data, false)
	if err != nil || frame.Kind != gatt.FramePublicKey {
		o.recordSessionFailure(ErrorAuthenticationFailed, "Invalid key exchange frame")
		return
	}

	o.machine.HandleEvent(state.EventAuthStarted)

	if err := o.crypto.ComputeSharedSecret(frame.PublicKey); err != nil {
		o.logger.Warn("key exchange failed", "error", err)
		o.machine.HandleEvent(state.EventAuthFailed)
		o.recordSessionFailure(ErrorCryptoKeyExchangeFailed, "Key exchange failed")
		return
	}
	if err := o.crypto.DeriveSessionKey(); err != nil {
		o.machine.HandleEvent(state.EventAuthFailed)
		o.recordSessionFailure(ErrorCryptoKeyExchangeFailed, "Key derivation failed")
		return
	}

	// Reply with our public key so the peer can derive the same
	// session. Bootstrap frames are the only plaintext on the wire.
	reply, err := gatt.EncodePublicKeyFrame(o.crypto.PublicKey())
	if err == nil {
		o.notify(gatt.StatusCharUUID, reply)
	}

	o.machine.Context().Secure = true
	o.machine.HandleEvent(state.EventAuthSuccess)
	o.logCrypto(log.CryptoSessionEstablished)
	o.logger.Info("session established", "session_id", o.crypto.SessionID())
}

// acceptCredentials parses, validates, and acts on a decrypted
// credential document. The plaintext stays on this call stack.
func (o *Orchestrator) acceptCredentials(payload string) {
	creds, err := ParseCredentials(payload)
	if err != nil || !creds.Valid() {
		o.machine.HandleEvent(state.EventCredentialsInvalid)
		o.sendStatus("ERROR", "Invalid format")
		o.reportError(ErrorCredentialFormat, "invalid credential format", true)
		o.bumpFailures("invalid credential format")
		return
	}

	o.machine.Context().SSID = creds.SSID
	o.connectWifi(creds)
}

// connectWifi drives the station driver with the received credentials.
// The driver call blocks up to the configured timeout; the credentials
// are dropped when this frame returns.
func (o *Orchestrator) connectWifi(creds Credentials) {
	o.machine.HandleEvent(state.EventWifiConnectStarted)
	o.logger.Info("joining network", "ssid", creds.SSID)

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.WifiConnectTimeout)
	err := o.driver.Connect(ctx, creds.SSID, creds.Password)
	cancel()

	if err != nil {
		o.logger.Warn("join failed", "ssid", creds.SSID, "error", err)
		o.metrics.Failures++
		o.machine.HandleEvent(state.EventWifiConnectionFailed)
		o.sendStatus("ERROR", "WiFi connection failed")
		o.reportError(ErrorWifiConnectionFailed, err.Error(), false)
		o.complete(false)
		return
	}

	// Persist while the plaintext is still on this stack; the state
	// transition itself is driven by the driver's link-up event.
	o.persistCredentials(creds)
}

// persistCredentials hands the credentials to the store when
// configured. Storage failure does not fail the ceremony.
func (o *Orchestrator) persistCredentials(creds Credentials) {
	if !o.cfg.PersistCredentials || o.creds == nil {
		return
	}
	err := o.creds.Save(storage.CredentialRecord{
		SSID:         creds.SSID,
		Password:     creds.Password,
		SecurityType: creds.SecurityType,
		Hidden:       creds.Hidden,
	})
	if err != nil {
		o.logger.Warn("failed to persist credentials", "error", err)
		o.reportError(ErrorStorageFailed, err.Error(), true)
	}
}

// HandleWifiConnected processes a station link-up event.
func (o *Orchestrator) HandleWifiConnected(info wifi.ConnectionInfo) {
	if !o.machine.HandleEvent(state.EventWifiConnected) {
		return
	}

	o.machine.Context().IPAddress = info.IPAddress
	o.metrics.Successes++
	o.logWifi(info.SSID, true, "", info.RSSI)
	o.sendStatus("SUCCESS", "Connected to "+info.SSID)
	o.logger.Info("provisioned", "ssid", info.SSID, "ip", info.IPAddress)
	o.complete(true)
}

// HandleWifiDisconnected processes a station link-down event. Before
// the ceremony completes, losing the link escalates to the error
// state.
func (o *Orchestrator) HandleWifiDisconnected(reason wifi.DisconnectReason, message string) {
	o.metrics.WifiDisconnects++
	o.logWifi(o.machine.Context().SSID, false, reason.String(), 0)

	from := o.machine.Current()
	o.machine.HandleEvent(state.EventWifiDisconnected)

	// A link loss during the join or validation phase is fatal for
	// the ceremony; one after Provisioned (or one already handled as
	// a failed join) is not escalated again.
	switch from {
	case state.ConnectingWifi, state.ValidatingConnection:
		o.machine.HandleEventData(state.EventErrorOccurred, message)
		o.sendStatus("ERROR", "WiFi Disconnected")
		o.reportError(ErrorWifiConnectionFailed, message, false)
	}
}

// handleControlWrite processes a single-byte control command.
func (o *Orchestrator) handleControlWrite(data []byte) {
	if len(data) == 0 {
		return
	}
	cmd := data[0]

	switch cmd {
	case gatt.CommandReset:
		o.logger.Info("reset requested by peer")
		o.Reset()
	case gatt.CommandScan, gatt.CommandFactory:
		// Advisory commands are surfaced to the application.
		o.logger.Debug("advisory control command", "cmd", cmd)
		if o.onCommand != nil {
			o.onCommand(cmd)
		}
	default:
		o.logger.Debug("unknown control command", "cmd", cmd)
	}
}

// RenewSession re-derives the session keys from the retained master
// secret. Exposed for platforms that coordinate renewal with the peer
// out of band; both sides must re-derive before the next frame.
func (o *Orchestrator) RenewSession() error {
	if err := o.crypto.RenewSessionKey(); err != nil {
		return err
	}
	o.logCrypto(log.CryptoSessionRenewed)
	return nil
}

// sendStatus emits a status document to the peer. Once the session is
// established every status travels encrypted; before that, only
// bootstrap frames are sent in plaintext.
func (o *Orchestrator) sendStatus(status, message string) {
	doc := fmt.Sprintf(`{"status":%q,"msg":%q}`, status, message)

	if !o.crypto.Established() {
		o.notify(gatt.StatusCharUUID, []byte(doc))
		return
	}

	msg, err := o.crypto.Encrypt([]byte(doc))
	if err != nil {
		o.logger.Warn("failed to encrypt status", "error", err)
		return
	}
	frame, err := gatt.EncodeCiphertextFrame(msg.IV, msg.Ciphertext, msg.AuthTag)
	if err != nil {
		return
	}
	o.notify(gatt.StatusCharUUID, frame)
}

// notify pushes a notification and logs the outgoing frame.
func (o *Orchestrator) notify(characteristicUUID string, data []byte) {
	if err := o.ble.Notify(characteristicUUID, data); err != nil {
		o.logger.Warn("notify failed", "uuid", characteristicUUID, "error", err)
		return
	}
	o.logFrame(log.DirectionOut, characteristicUUID, data)
}

// recordSessionFailure reports a locally-recovered failure to the peer
// and the application, escalating after repeated failures.
func (o *Orchestrator) recordSessionFailure(kind ErrorKind, message string) {
	o.sendStatus("ERROR", message)
	o.reportError(kind, message, true)
	o.bumpFailures(message)
}

// bumpFailures escalates to the error state after the per-session
// failure threshold.
func (o *Orchestrator) bumpFailures(message string) {
	o.failCount++
	if o.failCount < maxSessionFailures {
		return
	}
	o.failCount = 0
	o.metrics.Failures++
	o.machine.HandleEventData(state.EventErrorOccurred, message)
	o.reportError(ErrorUnknown, "too many failures: "+message, false)
}

// reportError fires the registered error callback.
func (o *Orchestrator) reportError(kind ErrorKind, message string, canRetry bool) {
	ctx := o.machine.Context()
	ctx.LastErrorKind = uint8(kind)
	ctx.LastErrorMessage = message

	o.logError(kind, message)
	if o.onError != nil {
		o.onError(kind, message, canRetry)
	}
}

// complete fires the ceremony completion callback.
func (o *Orchestrator) complete(success bool) {
	if o.onComplete == nil {
		return
	}
	elapsed := time.Duration(0)
	if !o.ceremonyFrom.IsZero() {
		elapsed = time.Since(o.ceremonyFrom)
	}
	o.onComplete(success, elapsed)
}

// enterState is the machine entry hook. Leaving the handshake states
// for an inert state wipes the session so no key material outlives the
// ceremony phase it belongs to.
func (o *Orchestrator) enterState(s state.State, ctx *state.Context) {
	switch s {
	case state.Idle, state.Advertising, state.Error:
		if o.crypto.Established() {
			o.crypto.TerminateSession()
			o.logCrypto(log.CryptoSessionTerminated)
		}
		ctx.Secure = false
	}

	if s == state.Advertising {
		o.failCount = 0
	}
}

// logTransition feeds machine transitions to the protocol log and the
// application callback.
func (o *Orchestrator) logTransition(from, to state.State, event state.Event) {
	o.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: o.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerProvisioning,
		Category:     log.CategoryState,
		PeerAddress:  o.machine.Context().PeerAddress,
		SessionID:    o.crypto.SessionID(),
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Event:    event.String(),
		},
	})
	if o.onStateChange != nil {
		o.onStateChange(from, to)
	}
}

// logFrame records an on-wire frame. Payload bytes are ciphertext or
// bootstrap material only; plaintext never reaches the log.
func (o *Orchestrator) logFrame(dir log.Direction, characteristicUUID string, data []byte) {
	o.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: o.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryFrame,
		PeerAddress:  o.machine.Context().PeerAddress,
		SessionID:    o.crypto.SessionID(),
		Frame: &log.FrameEvent{
			Characteristic: characteristicUUID,
			Size:           len(data),
			Data:           data,
		},
	})
}

// logCrypto records a session lifecycle milestone.
func (o *Orchestrator) logCrypto(kind log.CryptoEventKind) {
	o.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: o.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryCrypto,
		SessionID:    o.crypto.SessionID(),
		Crypto:       &log.CryptoEvent{Kind: kind, SessionID: o.crypto.SessionID()},
	})
}

// logWifi records a station event.
func (o *Orchestrator) logWifi(ssid string, connected bool, reason string, rssi int8) {
	o.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: o.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerProvisioning,
		Category:     log.CategoryWifi,
		Wifi:         &log.WifiEvent{SSID: ssid, Connected: connected, Reason: reason, RSSI: rssi},
	})
}

// logError records an error event.
func (o *Orchestrator) logError(kind ErrorKind, message string) {
	code := int(kind)
	o.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: o.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerProvisioning,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerProvisioning,
			Message: message,
			Code:    &code,
		},
	})
}

// BeaconPayload builds the advertising manufacturer data reflecting
// the current state: Major carries the state, Minor the last error
// kind.
func (o *Orchestrator) BeaconPayload(deviceUUID uuid.UUID, txPower int8) []byte {
	b := gatt.Beacon{
		UUID:    deviceUUID,
		Major:   uint16(o.machine.Current()),
		Minor:   uint16(o.machine.Context().LastErrorKind),
		TxPower: txPower,
	}
	return b.Encode()
}
