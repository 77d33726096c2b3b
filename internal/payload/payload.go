// Package payload decodes the fixed-layout spectrometer UDP payload.
//
// Wire layout (big-endian counter, then packed samples):
//
//	offset 0..7     sequence counter, uint64 big-endian
//	offset 8..8199  1024 words of 8 bytes:
//	                [A(2k).re A(2k).im B(2k).re B(2k).im A(2k+1).re A(2k+1).im B(2k+1).re B(2k+1).im]
package payload

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/seqgap/internal/core"
)

const (
	// TimestampFieldSize is the size of the leading sequence counter.
	TimestampFieldSize = 8
	// SpectraBlockSize is the size of the packed sample block.
	SpectraBlockSize = 8192
	// PayloadSize is the total UDP payload size.
	PayloadSize = SpectraBlockSize + TimestampFieldSize

	// wordSize bytes carry two channels of both polarizations.
	wordSize = 8
	// ChannelCount is the number of channels per polarization.
	ChannelCount = SpectraBlockSize / wordSize * 2

	// HeaderSize is the Ethernet + IPv4 + UDP prefix stripped before decode.
	HeaderSize = 14 + 20 + 8
	// PacketSize is the only accepted captured frame length.
	PacketSize = HeaderSize + PayloadSize
)

// Polarization selects one of the two receiver channels.
type Polarization int

const (
	PolA Polarization = iota
	PolB
)

func (p Polarization) String() string {
	switch p {
	case PolA:
		return "A"
	case PolB:
		return "B"
	default:
		return fmt.Sprintf("Polarization(%d)", int(p))
	}
}

// Sample is one complex 8-bit fixed-point sample. No scaling is applied.
type Sample struct {
	Re int8
	Im int8
}

// MagSq returns Re²+Im². The maximum, 2·(-128)², fits in 16 bits.
func (s Sample) MagSq() uint16 {
	re, im := int32(s.Re), int32(s.Im)
	return uint16(re*re + im*im)
}

// Record is the decoded view of one payload.
type Record struct {
	SequenceCounter uint64
	PolA            [ChannelCount]Sample
	PolB            [ChannelCount]Sample
}

// Channels returns the sample array of one polarization.
func (r *Record) Channels(p Polarization) *[ChannelCount]Sample {
	if p == PolB {
		return &r.PolB
	}
	return &r.PolA
}

// Power returns the magnitude-squared spectrum of one polarization.
func (r *Record) Power(p Polarization) []uint16 {
	ch := r.Channels(p)
	out := make([]uint16, ChannelCount)
	for i, s := range ch {
		out[i] = s.MagSq()
	}
	return out
}

// PeakChannel returns the channel with the largest power and its value.
// Ties resolve to the lowest channel.
func (r *Record) PeakChannel(p Polarization) (channel int, power uint16) {
	for i, m := range r.Power(p) {
		if m > power {
			channel, power = i, m
		}
	}
	return channel, power
}

// SequenceCounter reads only the counter field of a payload.
func SequenceCounter(b []byte) (uint64, error) {
	if len(b) != PayloadSize {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", core.ErrPayloadSize, len(b), PayloadSize)
	}
	return binary.BigEndian.Uint64(b[:TimestampFieldSize]), nil
}

// Decode decodes a full payload into a new Record.
func Decode(b []byte) (*Record, error) {
	r := new(Record)
	if err := DecodeInto(b, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeInto decodes a full payload into r, overwriting every field.
func DecodeInto(b []byte, r *Record) error {
	seq, err := SequenceCounter(b)
	if err != nil {
		return err
	}
	r.SequenceCounter = seq

	block := b[TimestampFieldSize:]
	for k := 0; (k+1)*wordSize <= len(block); k++ {
		w := block[k*wordSize : (k+1)*wordSize]
		c := 2 * k
		r.PolA[c] = Sample{Re: int8(w[0]), Im: int8(w[1])}
		r.PolB[c] = Sample{Re: int8(w[2]), Im: int8(w[3])}
		r.PolA[c+1] = Sample{Re: int8(w[4]), Im: int8(w[5])}
		r.PolB[c+1] = Sample{Re: int8(w[6]), Im: int8(w[7])}
	}
	return nil
}

// Encode produces the wire form of r.
func Encode(r *Record) []byte {
	b := make([]byte, PayloadSize)
	EncodeInto(b, r)
	return b
}

// EncodeInto writes the wire form of r into b, which must hold PayloadSize bytes.
func EncodeInto(b []byte, r *Record) {
	_ = b[PayloadSize-1]
	binary.BigEndian.PutUint64(b[:TimestampFieldSize], r.SequenceCounter)

	block := b[TimestampFieldSize:]
	for k := 0; k < ChannelCount/2; k++ {
		w := block[k*wordSize : (k+1)*wordSize]
		c := 2 * k
		w[0], w[1] = byte(r.PolA[c].Re), byte(r.PolA[c].Im)
		w[2], w[3] = byte(r.PolB[c].Re), byte(r.PolB[c].Im)
		w[4], w[5] = byte(r.PolA[c+1].Re), byte(r.PolA[c+1].Im)
		w[6], w[7] = byte(r.PolB[c+1].Re), byte(r.PolB[c+1].Im)
	}
}
