package source

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"firestige.xyz/seqgap/internal/core"
)

// CompileBPF compiles a tcpdump-style expression into classic BPF for a
// socket that delivers frames of the given link type. libpcap does the
// compiling; the result is re-expressed as x/net/bpf instructions so it can
// be attached with TPacket.SetBPF. Accepted packets are truncated to snapLen.
func CompileBPF(linkType layers.LinkType, filter string, snapLen int) ([]bpf.RawInstruction, error) {
	prog, err := pcap.CompileBPFFilter(linkType, snapLen, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q for %s: %v", core.ErrFilterInstall, filter, linkType, err)
	}

	raw := make([]bpf.RawInstruction, len(prog))
	for i, ins := range prog {
		raw[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return raw, nil
}
