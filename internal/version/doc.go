// Package version exposes build metadata of the lvc binaries.
//
// Version, Commit and BuildTime are injected via ldflags; when Commit is not
// injected the VCS revision stamped by the Go toolchain is used instead.
package version
