// Package wifi defines the station driver contract the provisioning
// core consumes, and a retrying wrapper implementing the configured
// retry policy with exponential backoff.
//
// The core never talks to a radio directly: a platform binding (or a
// simulator) implements Driver, and the orchestrator calls Connect
// with the credentials it decrypted. Retry policy belongs to the
// driver layer, not the core.
package wifi
