package source

import "fmt"

const (
	tpacketAlignment = 16 // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, rounded
	maxBlockSize     = 4 * 1024 * 1024
)

// recomputeSize derives an AF_PACKET ring geometry for a memory budget.
//
// PACKET_MMAP requires the frame size to be a multiple of TPACKET_ALIGNMENT,
// the block size to be a multiple of the page size and of the frame size,
// and blockSize*numBlocks should approximate the budget.
func recomputeSize(ringMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if ringMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ring size must be positive, got %d MB", ringMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// Page-align the frame so whole frames tile a page-aligned block.
		frameSize = alignUp(frameSize, pageSize)
		blockSize = max(maxBlockSize/frameSize, 1) * frameSize
	}

	numBlocks = max(ringMB*1024*1024/blockSize, 1)
	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
