package rdh

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/internal/config"
	"github.com/aphecetche/mchraw/internal/pool"
)

// DataBlock groups one encoder burst destined to a single (feeId, orbit,
// bc), matching the unit PageCodec's encoder splits into pages (§4.7).
type DataBlock struct {
	Orbit             uint32
	BC                uint16
	FeeId             uint16
	LinkId            uint8
	Payload           []byte
	HeartbeatBoundary bool
	TimeFrameStart    bool
}

// Encoder splits DataBlocks into fixed-size RDH-framed pages, matching
// BareElinkEncoder-adjacent bookkeeping in the original pipeline
// (packetCounter monotonic per feeId, one trailing stop page per burst).
// EncodeBlock borrows its assembly buffer from a pool.ByteBufferPool.
type Encoder struct {
	cfg            config.Config
	packetCounters map[uint16]uint8
	bufPool        *pool.ByteBufferPool
}

// NewEncoder creates a page Encoder bound to cfg.
func NewEncoder(cfg config.Config) *Encoder {
	return &Encoder{
		cfg:            cfg,
		packetCounters: make(map[uint16]uint8),
		bufPool:        pool.NewByteBufferPool(4*cfg.PageSize, 64*cfg.PageSize),
	}
}

func (e *Encoder) nextPacketCounter(feeId uint16) uint8 {
	v := e.packetCounters[feeId]
	e.packetCounters[feeId] = v + 1
	return v
}

// EncodeBlock renders b into one or more pages of e.cfg.PageSize bytes,
// followed by a trailing empty stop page (§8 scenario 7).
func (e *Encoder) EncodeBlock(b DataBlock) ([]byte, error) {
	payloadBudget := e.cfg.PageSize - Size
	if payloadBudget <= 0 && len(b.Payload) > 0 {
		return nil, fmt.Errorf("%w: pageSize=%d leaves no room for payload", errs.ErrBadArgument, e.cfg.PageSize)
	}

	bb := e.bufPool.Get()
	defer e.bufPool.Put(bb)

	offset := 0
	var pageCounter uint16
	for offset < len(b.Payload) {
		n := len(b.Payload) - offset
		if n > payloadBudget {
			n = payloadBudget
		}
		h := e.newRDH(b, pageCounter, false)
		h.MemorySize = uint16(Size + n)
		bb.MustWrite(e.renderPage(h, b.Payload[offset:offset+n]))
		offset += n
		pageCounter++
	}

	stop := e.newRDH(b, pageCounter, true)
	stop.MemorySize = Size
	bb.MustWrite(e.renderPage(stop, nil))

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out, nil
}

// EmptyHeartbeatPage renders a single RDH-only stop page for a
// (feeId, orbit, bc) that produced no payload during this heartbeat
// frame, so every link has a record at every heartbeat.
func (e *Encoder) EmptyHeartbeatPage(feeId uint16, linkId uint8, orbit uint32, bc uint16) []byte {
	b := DataBlock{Orbit: orbit, BC: bc, FeeId: feeId, LinkId: linkId, HeartbeatBoundary: true}
	h := e.newRDH(b, 0, true)
	h.MemorySize = Size
	return e.renderPage(h, nil)
}

func (e *Encoder) newRDH(b DataBlock, pageCounter uint16, stop bool) RDH {
	h := New()
	h.FeeId = b.FeeId
	h.LinkId = b.LinkId
	h.TriggerOrbit = b.Orbit
	h.HeartbeatOrbit = b.Orbit
	h.TriggerBC = b.BC
	h.HeartbeatBC = b.BC
	h.OffsetToNext = uint16(e.cfg.PageSize)
	h.PageCounter = pageCounter
	h.PacketCounter = e.nextPacketCounter(b.FeeId)
	if stop {
		h.StopBit = 1
	}
	if b.HeartbeatBoundary {
		h.TriggerType |= TriggerTypeHB
	}
	if b.TimeFrameStart {
		h.TriggerType |= TriggerTypeTF
	}
	return h
}

func (e *Encoder) renderPage(h RDH, payload []byte) []byte {
	page := make([]byte, e.cfg.PageSize)
	for i := range page {
		page[i] = e.cfg.PaddingByte
	}
	copy(page, h.Bytes())
	copy(page[Size:], payload)
	return page
}

// PageHandler receives one parsed RDH and its payload slice (borrowed
// from the decoder's input buffer; callers must not retain it past the
// call).
type PageHandler func(h RDH, payload []byte)

// OrbitJumpHandler is notified when two consecutive pages for the same
// feeId have |Δorbit| > 1. The Decoder itself only counts and reports the
// jump.
type OrbitJumpHandler func(feeId uint16, fromOrbit, toOrbit uint32)

// DecoderStats are the buffer-walk-level statistics surfaced by the
// decoder, counted separately from the per-e-link Stats of package elink
// since an orbit jump is a single stream-wide event (see DESIGN.md).
type DecoderStats struct {
	NofPages      uint64
	NofOrbitJumps uint64
}

// Decoder walks a buffer of consecutive RDH pages, following
// offsetToNext, validating each RDH, and detecting orbit jumps.
type Decoder struct {
	cfg         config.Config
	onOrbitJump OrbitJumpHandler
	lastOrbit   map[uint16]uint32
	stats       DecoderStats
}

// NewDecoder creates a Decoder bound to cfg. onOrbitJump may be nil.
func NewDecoder(cfg config.Config, onOrbitJump OrbitJumpHandler) *Decoder {
	return &Decoder{cfg: cfg, onOrbitJump: onOrbitJump, lastOrbit: make(map[uint16]uint32)}
}

// Stats returns a snapshot of the decoder's buffer-walk statistics.
func (d *Decoder) Stats() DecoderStats { return d.stats }

// Decode walks buf page by page, invoking onPage for every valid RDH.
// Decoding stops at the first invalid RDH (fatal for this buffer, per
// §7's RdhInvalid propagation policy) but does not affect the decoder's
// accumulated statistics or per-feeId orbit tracking.
func (d *Decoder) Decode(buf []byte, onPage PageHandler) error {
	offset := 0
	for offset < len(buf) {
		if offset+Size > len(buf) {
			return fmt.Errorf("%w: truncated RDH at offset %d", errs.ErrRdhInvalid, offset)
		}

		var h RDH
		if err := h.Parse(buf[offset : offset+Size]); err != nil {
			return err
		}
		if int(h.MemorySize) < Size || int(h.MemorySize) > int(h.OffsetToNext) {
			return fmt.Errorf("%w: memorySize=%d inconsistent with offsetToNext=%d", errs.ErrRdhInvalid, h.MemorySize, h.OffsetToNext)
		}
		if h.OffsetToNext == 0 {
			return fmt.Errorf("%w: non-positive offsetToNext", errs.ErrRdhInvalid)
		}

		payloadLen := int(h.MemorySize) - Size
		if offset+Size+payloadLen > len(buf) {
			return fmt.Errorf("%w: payload overruns buffer", errs.ErrRdhInvalid)
		}
		payload := buf[offset+Size : offset+Size+payloadLen]

		d.checkOrbitJump(h)
		d.stats.NofPages++
		onPage(h, payload)

		offset += int(h.OffsetToNext)
	}
	return nil
}

func (d *Decoder) checkOrbitJump(h RDH) {
	prev, ok := d.lastOrbit[h.FeeId]
	d.lastOrbit[h.FeeId] = h.TriggerOrbit
	if !ok {
		return
	}
	delta := int64(h.TriggerOrbit) - int64(prev)
	if delta < 0 {
		delta = -delta
	}
	if delta > 1 {
		d.stats.NofOrbitJumps++
		if d.onOrbitJump != nil {
			d.onOrbitJump(h.FeeId, prev, h.TriggerOrbit)
		}
	}
}
