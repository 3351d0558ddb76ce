// Command wible-console is an interactive bench console.
//
// It runs a complete device in-process (simulated radios) and lets the
// operator play the mobile peer against it: connect, exchange keys,
// push credentials, and watch the status notifications. Useful for
// factory bring-up and protocol debugging without a phone.
//
// Commands:
//
//	connect [addr]         simulate a central connecting
//	keys                   perform the public-key exchange
//	send <ssid> <pass>     encrypt and write credentials
//	raw <hex>              write raw bytes to the credentials characteristic
//	reset                  send the reset control command
//	disconnect             simulate the central dropping the link
//	state                  show the device state and history
//	metrics                show ceremony counters
//	quit                   exit
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wible-protocol/wible-go/internal/sim"
	"github.com/wible-protocol/wible-go/pkg/gatt"
	"github.com/wible-protocol/wible-go/pkg/provisioning"
	"github.com/wible-protocol/wible-go/pkg/session"
	"github.com/wible-protocol/wible-go/pkg/state"
	"github.com/wible-protocol/wible-go/pkg/storage"
)

// console holds the device under test and the peer-side session.
type console struct {
	orch *provisioning.Orchestrator
	ble  *sim.GATTServer
	wifi *sim.WifiDriver
	peer *session.Crypto
	out  io.Writer
}

func main() {
	var (
		network  = flag.String("network", "HomeNet:p@ssw0rd", "simulated joinable network as ssid:password")
		logLevel = flag.String("log-level", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()

	rl, err := readline.New("wible> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init readline:", err)
		os.Exit(1)
	}
	defer rl.Close()

	c, err := newConsole(*network, *logLevel, rl.Stdout())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Fprintln(c.out, "wible-console: device advertising, type 'connect' to begin (help: ?)")

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		if quit := c.dispatch(strings.Fields(strings.TrimSpace(line))); quit {
			return
		}
		// Drain everything the command produced before prompting again.
		c.orch.ProcessPending()
		c.printNotifications()
	}
}

// newConsole assembles the in-process device.
func newConsole(network, logLevel string, out io.Writer) (*console, error) {
	ble := sim.NewGATTServer()
	station := sim.NewWifiDriver()
	ssid, pass, ok := strings.Cut(network, ":")
	if !ok {
		return nil, fmt.Errorf("invalid -network %q, want ssid:password", network)
	}
	station.AddNetwork(ssid, pass)

	lvl := slog.LevelWarn
	if logLevel == "debug" {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))

	cfg := provisioning.DefaultConfig()
	orch, err := provisioning.New(cfg, provisioning.Deps{
		BLE:    ble,
		Wifi:   station,
		Store:  storage.NewMemoryStore(),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := orch.StartProvisioning(); err != nil {
		return nil, err
	}

	peer, err := session.NewCrypto(session.Config{SessionTimeout: cfg.SessionTimeout})
	if err != nil {
		return nil, err
	}

	return &console{orch: orch, ble: ble, wifi: station, peer: peer, out: out}, nil
}

// dispatch executes one console command. Returns true to quit.
func (c *console) dispatch(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "quit", "exit":
		return true

	case "?", "help":
		fmt.Fprintln(c.out, "commands: connect [addr], keys, send <ssid> <pass>, raw <hex>, reset, disconnect, state, metrics, quit")

	case "connect":
		addr := "AA:BB:CC:DD:EE:FF"
		if len(args) > 1 {
			addr = args[1]
		}
		c.ble.CentralConnect(addr)
		fmt.Fprintln(c.out, "central connected:", addr)

	case "keys":
		c.exchangeKeys()

	case "send":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "usage: send <ssid> [pass]")
			return false
		}
		pass := ""
		if len(args) > 2 {
			pass = args[2]
		}
		c.sendCredentials(args[1], pass)

	case "raw":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "usage: raw <hex>")
			return false
		}
		data, err := hex.DecodeString(args[1])
		if err != nil {
			fmt.Fprintln(c.out, "bad hex:", err)
			return false
		}
		c.ble.CentralWrite(gatt.CredentialsCharUUID, data)

	case "reset":
		c.ble.CentralWrite(gatt.ControlCharUUID, []byte{gatt.CommandReset})

	case "disconnect":
		c.ble.CentralDisconnect(0)
		fmt.Fprintln(c.out, "central disconnected")

	case "state":
		c.orch.ProcessPending()
		fmt.Fprintln(c.out, "state:", c.orch.State().String())
		var names []string
		for _, s := range c.orch.Machine().History(state.HistorySize) {
			names = append(names, s.String())
		}
		fmt.Fprintln(c.out, "history:", strings.Join(names, " -> "))

	case "metrics":
		m := c.orch.Metrics()
		fmt.Fprintf(c.out, "attempts=%d successes=%d failures=%d ble_disconnects=%d wifi_disconnects=%d\n",
			m.Attempts, m.Successes, m.Failures, m.BleDisconnects, m.WifiDisconnects)

	default:
		fmt.Fprintln(c.out, "unknown command:", args[0])
	}
	return false
}

// exchangeKeys plays the peer side of the public-key exchange.
func (c *console) exchangeKeys() {
	if err := c.peer.GenerateKeyPair(); err != nil {
		fmt.Fprintln(c.out, "peer keygen failed:", err)
		return
	}
	frame, err := gatt.EncodePublicKeyFrame(c.peer.PublicKey())
	if err != nil {
		fmt.Fprintln(c.out, "frame encode failed:", err)
		return
	}
	c.ble.CentralWrite(gatt.CredentialsCharUUID, frame)
	c.orch.ProcessPending()

	// The device replies with its public key on the status
	// characteristic; derive the matching session from the newest one.
	notifications := c.ble.Notifications()
	for i := len(notifications) - 1; i >= 0; i-- {
		n := notifications[i]
		if n.Characteristic != gatt.StatusCharUUID || len(n.Data) != 1+gatt.PublicKeySize || n.Data[0] != gatt.TagPublicKey {
			continue
		}
		if err := c.peer.ComputeSharedSecret(n.Data[1:]); err != nil {
			fmt.Fprintln(c.out, "peer key agreement failed:", err)
			return
		}
		if err := c.peer.DeriveSessionKey(); err != nil {
			fmt.Fprintln(c.out, "peer derivation failed:", err)
			return
		}
		fmt.Fprintln(c.out, "session established:", c.peer.SessionID())
		return
	}
	fmt.Fprintln(c.out, "no public key reply from device")
}

// sendCredentials encrypts and writes a credential document.
func (c *console) sendCredentials(ssid, pass string) {
	if !c.peer.Established() {
		fmt.Fprintln(c.out, "no session; run 'keys' first")
		return
	}
	doc := fmt.Sprintf(`{"ssid":%q,"pass":%q}`, ssid, pass)
	msg, err := c.peer.Encrypt([]byte(doc))
	if err != nil {
		fmt.Fprintln(c.out, "encrypt failed:", err)
		return
	}
	frame, err := gatt.EncodeCiphertextFrame(msg.IV, msg.Ciphertext, msg.AuthTag)
	if err != nil {
		fmt.Fprintln(c.out, "frame encode failed:", err)
		return
	}
	c.ble.CentralWrite(gatt.CredentialsCharUUID, frame)
	fmt.Fprintf(c.out, "credentials sent (%d bytes on the wire)\n", len(frame))
}

// printNotifications decodes and prints any pending status frames.
func (c *console) printNotifications() {
	for {
		select {
		case n := <-c.ble.NotifyChan():
			c.printNotification(n)
		case <-time.After(10 * time.Millisecond):
			return
		}
	}
}

func (c *console) printNotification(n sim.Notification) {
	if n.Characteristic != gatt.StatusCharUUID {
		fmt.Fprintf(c.out, "notify %s: %d bytes\n", n.Characteristic, len(n.Data))
		return
	}
	// Bootstrap reply frames are handled by exchangeKeys.
	if len(n.Data) == 1+gatt.PublicKeySize && n.Data[0] == gatt.TagPublicKey {
		return
	}
	if c.peer.Established() && len(n.Data) > 0 && n.Data[0] == gatt.TagCiphertext {
		f, err := gatt.ParseCredentialFrame(n.Data, true)
		if err == nil {
			plain, err := c.peer.Decrypt(&session.EncryptedMessage{IV: f.IV, Ciphertext: f.Ciphertext, AuthTag: f.Tag})
			if err == nil {
				fmt.Fprintln(c.out, "status:", string(plain))
				return
			}
		}
		fmt.Fprintf(c.out, "status: %d undecryptable bytes\n", len(n.Data))
		return
	}
	fmt.Fprintln(c.out, "status:", string(n.Data))
}
