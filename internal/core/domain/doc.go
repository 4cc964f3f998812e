// Package domain contains the core business entities for kbdelta.
//
// These types have no dependencies on infrastructure. They represent
// the fingerprint and state model of tracked documents, detected
// content changes, refresh sessions, and the tunable delta policy.
package domain
