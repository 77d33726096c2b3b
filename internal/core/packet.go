// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one frame pulled from a capture source, link-layer header included.
type RawPacket struct {
	Data      []byte    // Raw frame data
	Timestamp time.Time // Capture timestamp
}
