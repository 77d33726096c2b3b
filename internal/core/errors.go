// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared across packages; wrap them with fmt.Errorf("...: %w").
var (
	// Startup errors, fatal for the capture command
	ErrDeviceNotFound = errors.New("seqgap: capture device not found")
	ErrCaptureOpen    = errors.New("seqgap: capture handle cannot be opened")
	ErrFilterInstall  = errors.New("seqgap: packet filter cannot be installed")

	// Payload errors
	ErrPayloadSize = errors.New("seqgap: payload has wrong size")

	// Analysis errors
	ErrUnsorted = errors.New("seqgap: sequence counters are not sorted ascending")

	// Configuration errors
	ErrConfigInvalid = errors.New("seqgap: invalid configuration")
)
