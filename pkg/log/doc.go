// Package log provides structured protocol logging for the
// provisioning gateway.
//
// This package defines the Logger interface and Event types for
// capturing protocol-level events at multiple layers (transport,
// session, provisioning). It is separate from operational logging
// (slog) - protocol capture provides a complete machine-readable event
// trace for debugging and analysis. Frame events never include
// decrypted payloads; credential plaintext cannot reach a log sink.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/wible/device.wlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/wible/device.wlog"),
//	)
//
// # File Format
//
// Log files use CBOR encoding with .wlog extension.
package log
