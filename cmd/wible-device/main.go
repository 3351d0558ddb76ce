// Command wible-device is a reference provisioning device.
//
// It wires the provisioning core to simulated radios so a complete
// device can run on a workstation: BLE GATT and the Wi-Fi station are
// in-process simulators, the credential store is a bbolt file, and
// protocol logging can be mirrored to console and a binary log.
//
// Usage:
//
//	wible-device [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-name string          Advertised device name
//	-store string         Credential store path (default "wible.db")
//	-network string       Simulated joinable network as ssid:password
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Binary protocol log path (.wlog)
//
// Examples:
//
//	# Start with a simulated home network
//	wible-device -network HomeNet:p@ssw0rd -log-level debug
//
//	# Start from a config file with protocol capture
//	wible-device -config device.yaml -protocol-log device.wlog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wible-protocol/wible-go/internal/sim"
	"github.com/wible-protocol/wible-go/pkg/log"
	"github.com/wible-protocol/wible-go/pkg/provisioning"
	"github.com/wible-protocol/wible-go/pkg/state"
	"github.com/wible-protocol/wible-go/pkg/storage"
	"github.com/wible-protocol/wible-go/pkg/wifi"
)

func main() {
	var (
		configPath  = flag.String("config", "", "configuration file path (YAML)")
		deviceName  = flag.String("name", "", "advertised device name")
		storePath   = flag.String("store", "wible.db", "credential store path")
		network     = flag.String("network", "", "simulated joinable network as ssid:password")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
		protocolLog = flag.String("protocol-log", "", "binary protocol log path")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	cfg := provisioning.DefaultConfig()
	if *configPath != "" {
		loaded, err := provisioning.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *deviceName != "" {
		cfg.DeviceName = *deviceName
	}

	// Simulated radios.
	ble := sim.NewGATTServer()
	station := sim.NewWifiDriver()
	if *network != "" {
		ssid, pass, ok := strings.Cut(*network, ":")
		if !ok {
			logger.Error("invalid -network, want ssid:password", "value", *network)
			os.Exit(1)
		}
		station.AddNetwork(ssid, pass)
	}

	driver := wifi.NewRetryDriver(station, wifi.RetryConfig{
		MaxRetries:         cfg.WifiMaxRetries,
		RetryDelay:         cfg.WifiRetryDelay,
		ExponentialBackoff: true,
	})

	store, err := storage.OpenBolt(*storePath)
	if err != nil {
		logger.Error("failed to open credential store", "path", *storePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	plog, cleanup, err := newProtocolLogger(*protocolLog, logger, *logLevel == "debug")
	if err != nil {
		logger.Error("failed to open protocol log", "path", *protocolLog, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	orch, err := provisioning.New(cfg, provisioning.Deps{
		BLE:            ble,
		Wifi:           driver,
		Store:          store,
		ProtocolLogger: plog,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to create orchestrator", "error", err)
		os.Exit(1)
	}

	orch.OnStateChange(func(oldState, newState state.State) {
		logger.Info("state changed", "from", oldState.String(), "to", newState.String())
	})
	orch.OnError(func(kind provisioning.ErrorKind, message string, canRetry bool) {
		logger.Warn("provisioning error", "kind", kind.String(), "message", message, "can_retry", canRetry)
	})
	orch.OnComplete(func(success bool, elapsed time.Duration) {
		logger.Info("ceremony complete", "success", success, "elapsed", elapsed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start provisioning", "error", err)
		os.Exit(1)
	}
	logger.Info("device started", "name", cfg.DeviceName, "state", orch.State().String())

	go orch.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	cancel()
	orch.StopProvisioning()
}

// newLogger builds the operational logger for the selected level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newProtocolLogger assembles the protocol event sink: a binary file
// logger when a path is given, mirrored to slog in debug mode.
func newProtocolLogger(path string, logger *slog.Logger, debug bool) (log.Logger, func(), error) {
	var sinks []log.Logger
	cleanup := func() {}

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		sinks = append(sinks, fl)
		cleanup = func() { fl.Close() }
	}
	if debug {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return log.NoopLogger{}, cleanup, nil
	case 1:
		return sinks[0], cleanup, nil
	default:
		return log.NewMultiLogger(sinks...), cleanup, nil
	}
}
