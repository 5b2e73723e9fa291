package elink

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/sampa"
)

// UserLogicEncoder produces the 50-bit payload words of one e-link in
// UserLogic format. Words are queued for the UserLogic GBT multiplexer to
// tag with (linkIndex, elinkIndex) and interleave into the 64-bit wire
// words of §4.6. One e-link carries both SAMPA chips of a dual-SAMPA
// board, so the chip address is derived per call from the channel passed
// to AddChannelData/AddHeartbeat.
type UserLogicEncoder struct {
	chargeSumMode bool
	payloads      []uint64
	synced        bool
}

// NewUserLogicEncoder creates a UserLogicEncoder in either sample or
// charge-sum mode.
func NewUserLogicEncoder(chargeSumMode bool) *UserLogicEncoder {
	return &UserLogicEncoder{chargeSumMode: chargeSumMode}
}

// Payloads returns the accumulated 50-bit payload words produced so far.
func (e *UserLogicEncoder) Payloads() []uint64 { return e.payloads }

func (e *UserLogicEncoder) assertSync() {
	if e.synced {
		return
	}
	e.payloads = append(e.payloads, sampa.SyncHeader().Uint64())
	e.synced = true
}

// AddChannelData appends one header followed by the given clusters for
// channel in [0,63], packing every field as a 50-bit payload word whose
// five 10-bit sub-words are filled in pop10 order.
func (e *UserLogicEncoder) AddChannelData(channel uint8, clusters []sampa.Cluster) error {
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

	e.assertSync()

	var n10 uint16
	for _, c := range clusters {
		n10 += c.Nof10BitWords()
	}

	chip, addr := channelToChipAndAddress(channel)
	h, err := sampa.NewHeader(format.Data, n10, chip, addr, clusters[0].BunchCrossing, false)
	if err != nil {
		return err
	}
	h.Sign()

	w := newWordPacker(e.appendPayload)
	w.push10(uint16(h.Uint64() & 0x3FF))
	w.push10(uint16((h.Uint64() >> 10) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 20) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 30) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 40) & 0x3FF))

	for _, c := range clusters {
		if c.IsClusterSum() {
			w.push10(c.NofSamples) // metadata only; chargeSum payload is always 2 words
			w.push10(c.Timestamp)
			w.push10(uint16(c.ChargeSum & 0x3FF))
			w.push10(uint16((c.ChargeSum >> 10) & 0x3FF))
		} else {
			w.push10(uint16(len(c.Samples)))
			w.push10(c.Timestamp)
			for _, s := range c.Samples {
				w.push10(s)
			}
		}
	}
	w.flush()
	return nil
}

// AddHeartbeat appends a standalone heartbeat payload word.
func (e *UserLogicEncoder) AddHeartbeat(chipAddress uint8, bunchCrossing uint32) error {
	e.assertSync()
	h, err := sampa.HeartbeatHeader(chipAddress, bunchCrossing)
	if err != nil {
		return err
	}
	h.Sign()

	w := newWordPacker(e.appendPayload)
	w.push10(uint16(h.Uint64() & 0x3FF))
	w.push10(uint16((h.Uint64() >> 10) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 20) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 30) & 0x3FF))
	w.push10(uint16((h.Uint64() >> 40) & 0x3FF))
	w.flush()
	return nil
}

func (e *UserLogicEncoder) appendPayload(v uint64) {
	e.payloads = append(e.payloads, v)
}

// String renders a compact one-line diagnostic, in the spirit of the
// original C++ implementation's operator<< overloads on these state
// machines.
func (e *UserLogicEncoder) String() string {
	return fmt.Sprintf("UserLogicEncoder{words=%d synced=%v}", len(e.payloads), e.synced)
}

// wordPacker batches 10-bit sub-words five at a time into 50-bit payload
// words, flushing a partially-filled word padded with zero sub-words, the
// way setData/pop10 expect the register to be fully populated each time.
type wordPacker struct {
	emit  func(uint64)
	acc   uint64
	count int
}

func newWordPacker(emit func(uint64)) *wordPacker {
	return &wordPacker{emit: emit}
}

func (w *wordPacker) push10(v uint16) {
	w.acc |= uint64(v&0x3FF) << uint(w.count*10)
	w.count++
	if w.count == 5 {
		w.emit(w.acc)
		w.acc = 0
		w.count = 0
	}
}

func (w *wordPacker) flush() {
	if w.count > 0 {
		w.emit(w.acc)
		w.acc = 0
		w.count = 0
	}
}
