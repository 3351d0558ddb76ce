// Package state implements the provisioning state machine.
//
// The machine is a deterministic, table-driven FSM over the nine
// provisioning states. Transitions are registered as (from, event, to)
// triples with optional guards and actions; two global catch-alls
// (reset and error) apply when the per-pair table has no entry.
//
// The machine itself is not goroutine-safe by design: it is owned by a
// single holder (the orchestrator) and driven from one logical event
// loop. Callers on preemptive platforms must serialize events into the
// owner's queue.
package state
