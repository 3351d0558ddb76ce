// Package storage provides the namespaced key/value store the
// provisioning core persists into, with a bbolt-backed implementation
// for real devices and an in-memory implementation for tests.
//
// Credential records live under the "wible_creds" namespace and are
// written only after a ceremony reaches the provisioned state, and
// only when persistence is enabled.
package storage
