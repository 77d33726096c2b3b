//go:build !linux

package source

import (
	"fmt"

	"firestige.xyz/seqgap/internal/core"
)

// OpenAFPacket is only available on Linux.
func OpenAFPacket(opts Options) (Source, error) {
	return nil, fmt.Errorf("%w: afpacket backend requires linux", core.ErrCaptureOpen)
}
