package synth

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/seqgap/internal/payload"
)

// Endpoint addresses the synthetic frames.
type Endpoint struct {
	SrcMAC, DstMAC   net.HardwareAddr
	SrcIP, DstIP     net.IP
	SrcPort, DstPort uint16
}

// DefaultEndpoint mirrors the spectrometer's 10.0.0.2 -> 10.0.0.1:60000 link.
func DefaultEndpoint(dstPort uint16) Endpoint {
	return Endpoint{
		SrcMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		DstMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		SrcIP:   net.IPv4(10, 0, 0, 2).To4(),
		DstIP:   net.IPv4(10, 0, 0, 1).To4(),
		SrcPort: 50000,
		DstPort: dstPort,
	}
}

// Tone returns a record with a single full-scale carrier in both
// polarizations, the shape used for every synthetic payload.
func Tone(channel int) *payload.Record {
	rec := &payload.Record{}
	ch := channel % payload.ChannelCount
	rec.PolA[ch] = payload.Sample{Re: 127, Im: 0}
	rec.PolB[ch] = payload.Sample{Re: 0, Im: -128}
	return rec
}

// BuildFrame wraps an encoded payload in Ethernet/IPv4/UDP headers.
func BuildFrame(ep Endpoint, data []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       ep.SrcMAC,
		DstMAC:       ep.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Flags:    layers.IPv4DontFragment,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    ep.SrcIP,
		DstIP:    ep.DstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(ep.SrcPort),
		DstPort: layers.UDPPort(ep.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("failed to set network layer for checksum: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(data)); err != nil {
		return nil, fmt.Errorf("failed to serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePcap writes one Ethernet frame per counter as a classic pcap stream,
// stamped at start plus i*interval.
func WritePcap(w io.Writer, ep Endpoint, counters []uint64, start time.Time, interval time.Duration) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(uint32(payload.PacketSize), layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}

	rec := Tone(0)
	body := make([]byte, payload.PayloadSize)
	for i, c := range counters {
		rec.SequenceCounter = c
		payload.EncodeInto(body, rec)
		frame, err := BuildFrame(ep, body)
		if err != nil {
			return err
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * interval),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := pw.WritePacket(ci, frame); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return nil
}
