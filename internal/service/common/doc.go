// Package common holds helpers shared by the controller binaries.
//
// It provides a gRPC client for the controller API with per-call timeouts and a
// helper that detects the current system actor for the control audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
