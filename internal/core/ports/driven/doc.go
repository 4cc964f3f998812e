// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStateStore: persisted document-state snapshots
//   - SessionStore: persisted delta sessions (append-only once terminal)
//   - Pipeline: the external processing stages changes are dispatched to
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
//   - SchedulerStore: scheduler task state; only needed when the
//     background scheduler is enabled
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
