// Package gatt defines the BLE surface of the provisioning protocol:
// the service and characteristic UUIDs, the frame codec used on the
// credentials characteristic, the beacon advertising payload, and the
// contracts the orchestrator consumes from a platform GATT server.
//
// No radio driver lives here. Platform bindings implement Server and
// Notifier and deliver writes and connection events through the
// registered callbacks.
package gatt
