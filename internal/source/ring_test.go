package source

import "testing"

func TestRecomputeSize(t *testing.T) {
	tests := []struct {
		name     string
		ringMB   int
		snapLen  int
		pageSize int
		wantErr  bool
	}{
		{name: "jumbo frames", ringMB: 32, snapLen: 9216, pageSize: 4096},
		{name: "standard mtu", ringMB: 8, snapLen: 1518, pageSize: 4096},
		{name: "max snaplen", ringMB: 64, snapLen: 65535, pageSize: 4096},
		{name: "tiny budget", ringMB: 1, snapLen: 65535, pageSize: 4096},
		{name: "large pages", ringMB: 32, snapLen: 9216, pageSize: 65536},
		{name: "zero ring", ringMB: 0, snapLen: 9216, pageSize: 4096, wantErr: true},
		{name: "zero snaplen", ringMB: 32, snapLen: 0, pageSize: 4096, wantErr: true},
		{name: "odd page size", ringMB: 32, snapLen: 9216, pageSize: 1000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frameSize, blockSize, numBlocks, err := recomputeSize(tt.ringMB, tt.snapLen, tt.pageSize)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frameSize%tpacketAlignment != 0 {
				t.Errorf("frameSize %d not aligned to %d", frameSize, tpacketAlignment)
			}
			if frameSize < tt.snapLen+tpacketHdrLen {
				t.Errorf("frameSize %d cannot hold snaplen %d", frameSize, tt.snapLen)
			}
			if blockSize%tt.pageSize != 0 {
				t.Errorf("blockSize %d not a multiple of page size %d", blockSize, tt.pageSize)
			}
			if blockSize%frameSize != 0 {
				t.Errorf("blockSize %d not a multiple of frameSize %d", blockSize, frameSize)
			}
			if numBlocks < 1 {
				t.Errorf("numBlocks %d < 1", numBlocks)
			}
		})
	}
}

func TestLCM(t *testing.T) {
	if got := lcm(4096, 9280); got != 4096*9280/gcd(4096, 9280) {
		t.Errorf("lcm mismatch: %d", got)
	}
	if got := lcm(0, 5); got != 0 {
		t.Errorf("lcm(0,5) = %d, want 0", got)
	}
}
