// Package controller runs the post-control verification loop of the volt/var controller.
//
// Each cycle acquires a fleet snapshot, verifies the controls issued in the previous
// cycle, checks every bus tie and persists the resulting state so a restart does not
// lose pending controls. The package also hosts the process entry point that wires
// the sinks, the state file and the gRPC status API together.
package controller
