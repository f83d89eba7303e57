package voltvar

import "errors"

var (
	// ErrUnknownSubstation is returned for substations the controller has never acquired.
	ErrUnknownSubstation = errors.New("unknown substation")
	// ErrUnknownDevice is returned for transformers missing from a known substation.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNoControl is returned when ControlNone is issued.
	ErrNoControl = errors.New("no control to issue")
	// ErrControlPending is returned when the previous control of a device is not verified yet.
	ErrControlPending = errors.New("control already pending")
)
