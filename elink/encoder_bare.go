package elink

import (
	"fmt"

	"github.com/aphecetche/mchraw/bitstream"
	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/sampa"
)

// BareEncoder accumulates SAMPA clusters for one e-link into a bitstream in
// Bare format, grounded on Encoder/Bare/BareElinkEncoder.cxx. One e-link
// carries both SAMPA chips of a dual-SAMPA board, so the chip address is
// derived per call from the channel passed to AddChannelData/AddHeartbeat
// rather than fixed at construction.
type BareEncoder struct {
	chargeSumMode bool
	bs            *bitstream.BitStream
	synced        bool
}

// NewBareEncoder creates a BareEncoder in either sample or charge-sum mode.
func NewBareEncoder(chargeSumMode bool) *BareEncoder {
	return &BareEncoder{chargeSumMode: chargeSumMode, bs: bitstream.New()}
}

// Len exposes the current bit length of the accumulated stream, mostly
// useful for tests.
func (e *BareEncoder) Len() int { return e.bs.Len() }

// assertSync guarantees the stream starts with one sync header, matching
// BareElinkEncoder::assertSync.
func (e *BareEncoder) assertSync() error {
	if e.synced {
		return nil
	}
	if err := e.appendUint(sampa.SyncHeader().Uint64(), sampa.HeaderBits); err != nil {
		return err
	}
	e.synced = true
	return nil
}

func (e *BareEncoder) appendUint(v uint64, n int) error {
	switch n {
	case 10:
		return e.bs.AppendU10(uint16(v))
	case 20:
		return e.bs.AppendU20(uint32(v))
	case 50:
		return e.bs.AppendU50(v)
	default:
		return e.bs.AppendUn(v, n)
	}
}

// AddChannelData appends one SAMPA header plus cluster for the given
// channel in [0,63] (chipAddress*32 + channelAddress). Clusters added for
// the same channel are laid out back-to-back under a single header, as
// BareElinkEncoder::addChannelData does.
func (e *BareEncoder) AddChannelData(channel uint8, clusters []sampa.Cluster) error {
	if len(clusters) == 0 {
		return fmt.Errorf("%w: no clusters", errs.ErrBadArgument)
	}
	if channel > 63 {
		return fmt.Errorf("%w: channel=%d", errs.ErrBadElecAddress, channel)
	}
	for _, c := range clusters {
		if c.IsClusterSum() != e.chargeSumMode {
			return fmt.Errorf("%w: cluster mode does not match encoder mode", errs.ErrBadArgument)
		}
	}

	if err := e.assertSync(); err != nil {
		return err
	}

	var nof10 uint16
	for _, c := range clusters {
		nof10 += c.Nof10BitWords()
	}

	chip, addr := channelToChipAndAddress(channel)
	h, err := sampa.NewHeader(format.Data, nof10, chip, addr, clusters[0].BunchCrossing, false)
	if err != nil {
		return err
	}
	h.Sign()
	if err := e.appendUint(h.Uint64(), sampa.HeaderBits); err != nil {
		return err
	}

	for _, c := range clusters {
		if err := e.appendCluster(c); err != nil {
			return err
		}
	}
	return nil
}

// AddHeartbeat appends a standalone heartbeat header for the given chip.
func (e *BareEncoder) AddHeartbeat(chipAddress uint8, bunchCrossing uint32) error {
	if err := e.assertSync(); err != nil {
		return err
	}
	h, err := sampa.HeartbeatHeader(chipAddress, bunchCrossing)
	if err != nil {
		return err
	}
	h.Sign()
	return e.appendUint(h.Uint64(), sampa.HeaderBits)
}

func (e *BareEncoder) appendCluster(c sampa.Cluster) error {
	if err := e.appendUint(uint64(c.NofSamples), 10); err != nil {
		return err
	}
	if err := e.appendUint(uint64(c.Timestamp), 10); err != nil {
		return err
	}
	if c.IsClusterSum() {
		return e.appendUint(uint64(c.ChargeSum), 20)
	}
	for _, s := range c.Samples {
		if err := e.appendUint(uint64(s), 10); err != nil {
			return err
		}
	}
	return nil
}

// FillWithSync pads the stream up to targetLen bits with the sync pattern,
// matching BareElinkEncoder::fillWithSync; used by the Bare GBT
// multiplexer to align every e-link to the same length before interleaving.
func (e *BareEncoder) FillWithSync(targetLen int) error {
	return e.bs.FillWithSync(targetLen)
}

// Bits returns the underlying bitstream for the GBT multiplexer to read.
func (e *BareEncoder) Bits() *bitstream.BitStream { return e.bs }

// String renders a compact one-line diagnostic, in the spirit of the
// original C++ implementation's operator<< overloads on these state
// machines.
func (e *BareEncoder) String() string {
	return fmt.Sprintf("BareEncoder{bits=%d synced=%v}", e.bs.Len(), e.synced)
}
