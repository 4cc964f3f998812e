// Package services implements the driving port interfaces.
// Services contain the core business logic: change detection,
// state/session tracking, delta-refresh orchestration, and the
// background job and scheduling facades over them.
//
// Services depend on driven ports (adapters) only through interfaces.
package services
