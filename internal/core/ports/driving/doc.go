// Package driving defines the interfaces that callers use to drive the
// core. These are the "driving" or "primary" ports in hexagonal
// architecture: the CLI and the background scheduler call in through
// them, and core services implement them.
package driving
