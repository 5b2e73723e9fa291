// Package mchraw provides a convenience facade over the lower-level
// elink/gbt/rdh/dispatch packages: one Encoder and one Decoder pair that
// together implement the encoder and decoder entry points of §6.2 —
// add_channel_data / start_heartbeat_frame / move_to_buffer on the encode
// side, decode(page, on_cluster) on the decode side — routing through the
// embedding-supplied electronic map to resolve a DsElecId to the physical
// (feeId, linkInFee, solarId) triple the lower packages operate on.
//
// For fine-grained control over a single e-link or GBT link, use the
// elink/gbt/rdh packages directly; this package only wires them together
// the way a typical embedding would.
package mchraw

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/aphecetche/mchraw/dispatch"
	"github.com/aphecetche/mchraw/elecmap"
	"github.com/aphecetche/mchraw/elink"
	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/gbt"
	"github.com/aphecetche/mchraw/internal/config"
	"github.com/aphecetche/mchraw/rdh"
	"github.com/aphecetche/mchraw/sampa"
)

// SampaChannelHandler receives one decoded cluster together with the
// electronic address and channel it was read from (spec §6.2).
type SampaChannelHandler func(ds elecmap.DsElecId, channel uint8, cluster sampa.Cluster)

// chargeSumBit is the feeId bit the dispatcher and the encoder both use to
// tag a page's sample/charge-sum mode (spec §3.5, §4.8).
const chargeSumBit uint16 = 0x100

func physicalFeeId(feeId uint16) uint16 { return feeId &^ chargeSumBit }

func bareWordsToBytes(words [][2]uint64) []byte {
	buf := make([]byte, len(words)*16)
	for i, w := range words {
		chunk := buf[i*16 : i*16+16]
		binary.LittleEndian.PutUint64(chunk[0:8], w[0])
		binary.LittleEndian.PutUint16(chunk[8:10], uint16(w[1]))
	}
	return buf
}

func bytesToBareWords(b []byte) ([][2]uint64, error) {
	if len(b)%16 != 0 {
		return nil, fmt.Errorf("%w: bare payload length %d is not a multiple of 16", errs.ErrBadArgument, len(b))
	}
	n := len(b) / 16
	words := make([][2]uint64, n)
	for i := 0; i < n; i++ {
		chunk := b[i*16 : i*16+16]
		low := binary.LittleEndian.Uint64(chunk[0:8])
		high := uint64(binary.LittleEndian.Uint16(chunk[8:10]))
		words[i] = [2]uint64{low, high}
	}
	return words, nil
}

func userLogicWordsToBytes(words []uint64) []byte {
	buf := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return buf
}

func bytesToUserLogicWords(b []byte) ([]uint64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: userlogic payload length %d is not a multiple of 8", errs.ErrBadArgument, len(b))
	}
	n := len(b) / 8
	words := make([]uint64, n)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint64(b[i*8 : i*8+8])
	}
	return words, nil
}

// Encoder accumulates channel data across many SOLAR boards and, on
// StartHeartbeatFrame, renders one RDH-paginated burst per physical link
// into its internal buffer for MoveToBuffer to drain. Not safe for
// concurrent use by multiple goroutines (spec §5).
type Encoder struct {
	cfg     config.Config
	format  format.Format
	elecMap elecmap.Map
	pageEnc *rdh.Encoder

	bareMux map[uint16]*gbt.BareMux
	ulMux   map[uint16]*gbt.UserLogicMux

	buf []byte
}

// NewEncoder builds an Encoder for the given on-wire format, resolving
// SOLAR addresses through elecMap.
func NewEncoder(f format.Format, elecMap elecmap.Map, opts ...config.Option) (*Encoder, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		cfg:     cfg,
		format:  f,
		elecMap: elecMap,
		pageEnc: rdh.NewEncoder(cfg),
		bareMux: make(map[uint16]*gbt.BareMux),
		ulMux:   make(map[uint16]*gbt.UserLogicMux),
	}, nil
}

func (e *Encoder) feeLinkFor(solarId uint16) (elecmap.FeeLinkId, error) {
	fl, ok := e.elecMap.SolarToFeeLink(solarId)
	if !ok {
		return elecmap.FeeLinkId{}, fmt.Errorf("%w: no FeeLinkId for solarId=%d", errs.ErrMissingMapping, solarId)
	}
	return fl, nil
}

func (e *Encoder) bareMuxFor(solarId uint16) *gbt.BareMux {
	m, ok := e.bareMux[solarId]
	if !ok {
		m = gbt.NewBareMux(e.cfg.ChargeSumMode)
		e.bareMux[solarId] = m
	}
	return m
}

func (e *Encoder) userLogicMuxFor(solarId uint16, linkInFee uint8) *gbt.UserLogicMux {
	m, ok := e.ulMux[solarId]
	if !ok {
		m = gbt.NewUserLogicMux(linkInFee, e.cfg.ChargeSumMode)
		e.ulMux[solarId] = m
	}
	return m
}

// AddChannelData queues clusters for one channel of one dual-SAMPA board
// (spec §6.2). Clusters are appended to the e-link's current bitstream
// (Bare) or payload queue (UserLogic); nothing is written to the output
// buffer until StartHeartbeatFrame.
func (e *Encoder) AddChannelData(ds elecmap.DsElecId, channel uint8, clusters []sampa.Cluster) error {
	if len(clusters) == 0 {
		return fmt.Errorf("%w: add_channel_data called with no clusters", errs.ErrBadArgument)
	}

	switch e.format {
	case format.Bare:
		mux := e.bareMuxFor(ds.SolarId)
		enc, err := mux.Encoder(ds.ElinkIndex())
		if err != nil {
			return err
		}
		return enc.AddChannelData(channel, clusters)
	case format.UserLogic:
		fl, err := e.feeLinkFor(ds.SolarId)
		if err != nil {
			return err
		}
		mux := e.userLogicMuxFor(ds.SolarId, fl.LinkInFee)
		enc, err := mux.Encoder(ds.ElinkIndex())
		if err != nil {
			return err
		}
		return enc.AddChannelData(channel, clusters)
	default:
		return fmt.Errorf("%w: unknown format %v", errs.ErrBadArgument, e.format)
	}
}

func (e *Encoder) effectiveFeeId(feeId uint16) uint16 {
	if e.cfg.ChargeSumMode {
		return feeId | chargeSumBit
	}
	return feeId &^ chargeSumBit
}

// StartHeartbeatFrame aligns every active e-link to the longest one with
// sync padding (Bare) or drains every queued payload (UserLogic), renders
// one RDH-paginated burst per physical link for this (orbit, bc), and
// resets the per-frame encoders so the next frame starts clean (spec
// §6.2).
func (e *Encoder) StartHeartbeatFrame(orbit uint32, bc uint16) error {
	switch e.format {
	case format.Bare:
		return e.renderBareFrame(orbit, bc)
	case format.UserLogic:
		return e.renderUserLogicFrame(orbit, bc)
	default:
		return fmt.Errorf("%w: unknown format %v", errs.ErrBadArgument, e.format)
	}
}

func (e *Encoder) renderBareFrame(orbit uint32, bc uint16) error {
	for solarId, mux := range e.bareMux {
		words, err := mux.Words()
		if err != nil {
			return err
		}
		fl, err := e.feeLinkFor(solarId)
		if err != nil {
			return err
		}
		buf, err := e.pageEnc.EncodeBlock(rdh.DataBlock{
			Orbit:             orbit,
			BC:                bc,
			FeeId:             e.effectiveFeeId(fl.FeeId),
			LinkId:            fl.LinkInFee,
			Payload:           bareWordsToBytes(words),
			HeartbeatBoundary: true,
		})
		if err != nil {
			return err
		}
		e.buf = append(e.buf, buf...)
	}
	e.bareMux = make(map[uint16]*gbt.BareMux)
	return nil
}

func (e *Encoder) renderUserLogicFrame(orbit uint32, bc uint16) error {
	byFeeId := make(map[uint16][]uint64)
	for solarId, mux := range e.ulMux {
		fl, err := e.feeLinkFor(solarId)
		if err != nil {
			return err
		}
		byFeeId[fl.FeeId] = append(byFeeId[fl.FeeId], mux.Words()...)
	}
	for feeId, words := range byFeeId {
		buf, err := e.pageEnc.EncodeBlock(rdh.DataBlock{
			Orbit:             orbit,
			BC:                bc,
			FeeId:             e.effectiveFeeId(feeId),
			LinkId:            format.UserLogicRdhLinkId,
			Payload:           userLogicWordsToBytes(words),
			HeartbeatBoundary: true,
		})
		if err != nil {
			return err
		}
		e.buf = append(e.buf, buf...)
	}
	e.ulMux = make(map[uint16]*gbt.UserLogicMux)
	return nil
}

// MoveToBuffer appends every byte rendered since the last call to dst and
// returns the number of bytes moved (spec §6.2).
func (e *Encoder) MoveToBuffer(dst *[]byte) (int, error) {
	n := len(e.buf)
	*dst = append(*dst, e.buf...)
	e.buf = e.buf[:0]
	return n, nil
}

// Decoder walks RDH-framed pages, dispatching each page's payload to the
// Bare or UserLogic GBT demultiplexer selected by the session's first RDH
// (spec §4.8), and surfaces per-e-link statistics keyed by DsElecId. Not
// safe for concurrent use by multiple goroutines (spec §5).
type Decoder struct {
	cfg     config.Config
	elecMap elecmap.Map
	pageDec *rdh.Decoder
	session *dispatch.Session

	bareDemux map[uint16]*gbt.BareDemux
	ulDemux   map[uint16]*gbt.UserLogicDemux

	activeOnCluster SampaChannelHandler
}

// NewDecoder builds a Decoder resolving physical addresses through
// elecMap. onOrbitJump may be nil. An orbit jump is counted in PageStats
// and reported to onOrbitJump; the e-link decoders are not reset on it and
// keep their state across the jump.
func NewDecoder(elecMap elecmap.Map, onOrbitJump rdh.OrbitJumpHandler, opts ...config.Option) (*Decoder, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		cfg:       cfg,
		elecMap:   elecMap,
		pageDec:   rdh.NewDecoder(cfg, onOrbitJump),
		session:   dispatch.NewSession(),
		bareDemux: make(map[uint16]*gbt.BareDemux),
		ulDemux:   make(map[uint16]*gbt.UserLogicDemux),
	}, nil
}

func (d *Decoder) dispatchCluster(solarId uint16, elinkIndex, channel uint8, cluster sampa.Cluster) {
	if d.activeOnCluster == nil {
		return
	}
	ds, err := elecmap.DsElecIdFromElinkIndex(solarId, elinkIndex)
	if err != nil {
		return
	}
	d.activeOnCluster(ds, channel, cluster)
}

func (d *Decoder) bareDemuxFor(solarId uint16) *gbt.BareDemux {
	m, ok := d.bareDemux[solarId]
	if ok {
		return m
	}
	m = gbt.NewBareDemux(d.cfg.ChargeSumMode,
		func(elinkIndex, channel uint8, cluster sampa.Cluster) {
			d.dispatchCluster(solarId, elinkIndex, channel, cluster)
		},
		nil,
	)
	d.bareDemux[solarId] = m
	return m
}

func (d *Decoder) userLogicDemuxFor(solarId uint16) *gbt.UserLogicDemux {
	m, ok := d.ulDemux[solarId]
	if ok {
		return m
	}
	m = gbt.NewUserLogicDemux(d.cfg.ChargeSumMode,
		func(elinkIndex, channel uint8, cluster sampa.Cluster) {
			d.dispatchCluster(solarId, elinkIndex, channel, cluster)
		},
		nil,
	)
	d.ulDemux[solarId] = m
	return m
}

// Decode walks one RDH-paginated buffer, dispatching every produced
// cluster to onCluster (spec §6.2). Decoding aborts at the first
// RdhInvalid or FormatMismatch; both are returned to the caller.
func (d *Decoder) Decode(page []byte, onCluster SampaChannelHandler) error {
	d.activeOnCluster = onCluster
	defer func() { d.activeOnCluster = nil }()

	var firstErr error
	err := d.pageDec.Decode(page, func(h rdh.RDH, payload []byte) {
		if firstErr != nil || len(payload) == 0 {
			return
		}
		tok, err := d.session.Resolve(h)
		if err != nil {
			firstErr = err
			return
		}
		if err := d.decodePagePayload(tok, h, payload); err != nil {
			firstErr = err
		}
	})
	if err != nil {
		return err
	}
	return firstErr
}

func (d *Decoder) decodePagePayload(tok dispatch.Token, h rdh.RDH, payload []byte) error {
	switch tok.Format {
	case format.Bare:
		return d.decodeBarePage(h, payload)
	case format.UserLogic:
		return d.decodeUserLogicPage(h, payload)
	default:
		return fmt.Errorf("%w: unknown format %v", errs.ErrBadArgument, tok.Format)
	}
}

func (d *Decoder) decodeBarePage(h rdh.RDH, payload []byte) error {
	fl := elecmap.FeeLinkId{FeeId: physicalFeeId(h.FeeId), LinkInFee: h.LinkId}
	solarId, ok := d.elecMap.FeeLinkToSolar(fl)
	if !ok {
		return fmt.Errorf("%w: no solarId for %s", errs.ErrMissingMapping, fl)
	}
	words, err := bytesToBareWords(payload)
	if err != nil {
		return err
	}
	demux := d.bareDemuxFor(solarId)
	for _, w := range words {
		demux.AppendWord(w[0], w[1])
	}
	return nil
}

func (d *Decoder) decodeUserLogicPage(h rdh.RDH, payload []byte) error {
	words, err := bytesToUserLogicWords(payload)
	if err != nil {
		return err
	}
	for _, w := range words {
		linkIndex, isControl := gbt.PeekUserLogicLink(w)
		if isControl {
			continue
		}
		fl := elecmap.FeeLinkId{FeeId: physicalFeeId(h.FeeId), LinkInFee: linkIndex}
		solarId, ok := d.elecMap.FeeLinkToSolar(fl)
		if !ok {
			return fmt.Errorf("%w: no solarId for %s", errs.ErrMissingMapping, fl)
		}
		if _, err := d.userLogicDemuxFor(solarId).AppendWord(w); err != nil {
			return err
		}
	}
	return nil
}

// PageStats returns the accumulated page-level statistics (page count,
// orbit-jump count) of the underlying PageCodec decoder.
func (d *Decoder) PageStats() rdh.DecoderStats { return d.pageDec.Stats() }

// StatsFor returns the per-e-link statistics for ds, if that e-link has
// seen any traffic this session.
func (d *Decoder) StatsFor(ds elecmap.DsElecId) (elink.Stats, bool) {
	if m, ok := d.bareDemux[ds.SolarId]; ok {
		if dec, err := m.Decoder(ds.ElinkIndex()); err == nil {
			return dec.Stats(), true
		}
	}
	if m, ok := d.ulDemux[ds.SolarId]; ok {
		if dec, err := m.Decoder(ds.ElinkIndex()); err == nil {
			return dec.Stats(), true
		}
	}
	return elink.Stats{}, false
}

// AllStats iterates every (DsElecId, Stats) pair for e-links that have
// been wired up by decoding at least one page, using the range-over-func
// iterator idiom.
func (d *Decoder) AllStats() iter.Seq2[elecmap.DsElecId, elink.Stats] {
	return func(yield func(elecmap.DsElecId, elink.Stats) bool) {
		for solarId, m := range d.bareDemux {
			for i := uint8(0); i < gbt.NofElinks; i++ {
				dec, err := m.Decoder(i)
				if err != nil {
					continue
				}
				ds, err := elecmap.DsElecIdFromElinkIndex(solarId, i)
				if err != nil {
					continue
				}
				if !yield(ds, dec.Stats()) {
					return
				}
			}
		}
		for solarId, m := range d.ulDemux {
			for i := uint8(0); i < gbt.NofElinks; i++ {
				dec, err := m.Decoder(i)
				if err != nil {
					continue
				}
				ds, err := elecmap.DsElecIdFromElinkIndex(solarId, i)
				if err != nil {
					continue
				}
				if !yield(ds, dec.Stats()) {
					return
				}
			}
		}
	}
}
