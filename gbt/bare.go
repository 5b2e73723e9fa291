// Package gbt implements the two GBT-link (de)multiplexers: the Bare
// bit-interleaved variant (§4.5) and the UserLogic tagged-word variant
// (§4.6). Grounded on original_source Decoder/src/BareGBTDecoder.h and
// Decoder/src/UserLogicGBTDecoder.h for the word-delivery cadence, and
// Encoder/Bare/BareGBTEncoder.cxx for the interleave direction.
package gbt

import (
	"fmt"

	"github.com/aphecetche/mchraw/elink"
	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/sampa"
)

// NofElinks is the number of e-links multiplexed onto one GBT/SOLAR link.
const NofElinks = 40

// BareMux interleaves NofElinks Bare-format e-link bitstreams into 128-bit
// GBT words, 2 bits per e-link per word (§4.5). Only the low 80 bits (10
// bytes) of each 128-bit word carry data; the high 48 bits are zero.
type BareMux struct {
	encoders [NofElinks]*elink.BareEncoder
}

// NewBareMux wires up a fresh BareEncoder for every e-link, all in the
// given charge-sum mode.
func NewBareMux(chargeSumMode bool) *BareMux {
	m := &BareMux{}
	for i := range m.encoders {
		m.encoders[i] = elink.NewBareEncoder(chargeSumMode)
	}
	return m
}

// Encoder returns the BareEncoder for the e-link at elinkIndex in [0,39].
func (m *BareMux) Encoder(elinkIndex uint8) (*elink.BareEncoder, error) {
	if elinkIndex >= NofElinks {
		return nil, fmt.Errorf("%w: elinkIndex=%d", errs.ErrBadElecAddress, elinkIndex)
	}
	return m.encoders[elinkIndex], nil
}

// Words pads every e-link's bitstream up to the longest one with sync
// bits, then produces the interleaved 128-bit GBT words as (low, high)
// uint64 pairs: the 80 data bits span bit 0 of low through bit 15 of
// high, following the design note in spec §9 against pulling in an
// arbitrary-precision integer type. The remaining 48 bits of high are
// always zero.
func (m *BareMux) Words() ([][2]uint64, error) {
	maxLen := 0
	for _, e := range m.encoders {
		if l := e.Bits().Len(); l > maxLen {
			maxLen = l
		}
	}
	// Round up to an even bit count: one GBT word carries 2 bits/e-link.
	if maxLen%2 != 0 {
		maxLen++
	}
	for _, e := range m.encoders {
		if err := e.FillWithSync(maxLen); err != nil {
			return nil, err
		}
	}

	nofWords := maxLen / 2
	words := make([][2]uint64, nofWords)
	for w := 0; w < nofWords; w++ {
		var low, high uint64
		for j, e := range m.encoders {
			bit0, err := e.Bits().Get(2 * w)
			if err != nil {
				return nil, err
			}
			bit1, err := e.Bits().Get(2*w + 1)
			if err != nil {
				return nil, err
			}
			setDataBit(&low, &high, 2*j, bit0)
			setDataBit(&low, &high, 2*j+1, bit1)
		}
		words[w] = [2]uint64{low, high}
	}
	return words, nil
}

// setDataBit sets bit position k (in [0,79]) of the 80-bit data region
// spanning the (low, high) pair.
func setDataBit(low, high *uint64, k int, v bool) {
	if !v {
		return
	}
	if k < 64 {
		*low |= uint64(1) << uint(k)
	} else {
		*high |= uint64(1) << uint(k-64)
	}
}

func dataBit(low, high uint64, k int) bool {
	if k < 64 {
		return low&(uint64(1)<<uint(k)) != 0
	}
	return high&(uint64(1)<<uint(k-64)) != 0
}

// BareDemux de-interleaves 128-bit GBT words (delivered as (low, high)
// uint64 pairs covering the 80 data bits) into per-e-link bit pairs,
// driving NofElinks BareDecoders.
type BareDemux struct {
	decoders [NofElinks]*elink.BareDecoder
}

// NewBareDemux wires one BareDecoder per e-link, forwarding decoded
// clusters to onCluster tagged with (elinkIndex, channel) via a thin
// closure per link, and heartbeats to onHeartbeat likewise.
func NewBareDemux(chargeSumMode bool, onCluster func(elinkIndex uint8, channel uint8, cluster sampa.Cluster), onHeartbeat func(elinkIndex uint8, chipAddress uint8)) *BareDemux {
	d := &BareDemux{}
	for i := range d.decoders {
		idx := uint8(i)
		var cb elink.ClusterHandler
		if onCluster != nil {
			cb = func(channel uint8, cluster sampa.Cluster) { onCluster(idx, channel, cluster) }
		}
		var hb elink.HeartbeatHandler
		if onHeartbeat != nil {
			hb = func(chipAddress uint8) { onHeartbeat(idx, chipAddress) }
		}
		d.decoders[i] = elink.NewBareDecoder(chargeSumMode, cb, hb)
	}
	return d
}

// Decoder returns the BareDecoder for the e-link at elinkIndex.
func (d *BareDemux) Decoder(elinkIndex uint8) (*elink.BareDecoder, error) {
	if elinkIndex >= NofElinks {
		return nil, fmt.Errorf("%w: elinkIndex=%d", errs.ErrBadElecAddress, elinkIndex)
	}
	return d.decoders[elinkIndex], nil
}

// AppendWord feeds the 80 data bits of one 128-bit GBT word, passed as its
// (low, high) uint64 pair, to every e-link decoder. Bits 64-79 (e-links
// 32-39) live in high; the remaining 48 bits of high carry no data.
func (d *BareDemux) AppendWord(low, high uint64) {
	for j, dec := range d.decoders {
		bit0 := dataBit(low, high, 2*j)
		bit1 := dataBit(low, high, 2*j+1)
		dec.Append(bit0, bit1)
	}
}
