// Package provisioning implements the control plane of the
// provisioning gateway.
//
// The Orchestrator is the single owner and mutator of the state
// machine and the crypto session. It routes GATT writes by
// characteristic, performs the public-key exchange, decrypts and
// parses credential frames, drives the Wi-Fi driver, and emits
// authenticated status notifications back to the peer.
//
// Driver callbacks are serialized into the orchestrator through a
// mutex-protected FIFO queue drained by Run; the synchronous Handle*
// methods exist for single-threaded embedders that provide their own
// loop.
package provisioning
