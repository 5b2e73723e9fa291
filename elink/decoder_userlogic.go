package elink

import (
	"fmt"

	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/sampa"
)

type ulState uint8

const (
	ulWaitingSync ulState = iota
	ulWaitingHeader
	ulWaitingSize
	ulWaitingTime
	ulWaitingSample
	ulErrorMode
)

func (s ulState) String() string {
	switch s {
	case ulWaitingSync:
		return "waitingSync"
	case ulWaitingHeader:
		return "waitingHeader"
	case ulWaitingSize:
		return "waitingSize"
	case ulWaitingTime:
		return "waitingTime"
	case ulWaitingSample:
		return "waitingSample"
	case ulErrorMode:
		return "errorMode"
	default:
		return "unknown"
	}
}

// UserLogicDecoder is the bit-level state machine for one e-link in
// UserLogic format (spec §4.4), fed one 50-bit payload word at a time. It
// is re-expressed here as a hand-rolled state enum with an explicit
// transition table, the table itself being the contract rather than any
// particular runtime-type-library machinery.
//
// Grounded on Decoder/src/BareElinkDecoder.cxx for the shared cluster
// model (header, nof10BitWords bookkeeping, reset-on-sync semantics); the
// UserLogic original decoder used an external state-machine library whose
// internal transitions are not reproduced here.
type UserLogicDecoder struct {
	chargeSumMode bool
	onCluster     ClusterHandler
	onHeartbeat   HeartbeatHandler

	state ulState
	stats Stats
	err   error

	data      uint64
	maskIndex int

	headerParts []uint16
	header      sampa.Header

	n10               uint16
	clusterSize       uint16
	clusterNofSamples uint16
	clusterTime       uint16

	sampleWordsLeft uint16
	samples         []uint16

	chargeSumLow     uint16
	haveChargeSumLow bool
}

// NewUserLogicDecoder creates a UserLogicDecoder. onCluster must not be
// nil; onHeartbeat may be nil.
func NewUserLogicDecoder(chargeSumMode bool, onCluster ClusterHandler, onHeartbeat HeartbeatHandler) *UserLogicDecoder {
	return &UserLogicDecoder{chargeSumMode: chargeSumMode, onCluster: onCluster, onHeartbeat: onHeartbeat}
}

// Stats returns a snapshot of the link's statistics.
func (d *UserLogicDecoder) Stats() Stats { return d.stats }

// Err returns the explanatory error that put the decoder into ErrorMode,
// or nil if it is not in that sub-state.
func (d *UserLogicDecoder) Err() error { return d.err }

// Reset returns the decoder to WaitingSync and clears any partial packet,
// keeping its Stats; decoding resumes at the next sync word.
func (d *UserLogicDecoder) Reset() {
	d.state = ulWaitingSync
	d.err = nil
	d.data = 0
	d.maskIndex = 0
	d.headerParts = d.headerParts[:0]
	d.n10 = 0
	d.sampleWordsLeft = 0
	d.samples = d.samples[:0]
	d.haveChargeSumLow = false
}

func (d *UserLogicDecoder) remaining() int { return 5 - d.maskIndex }

func (d *UserLogicDecoder) pop10() uint16 {
	shift := uint(d.maskIndex * 10)
	v := uint16((d.data >> shift) & 0x3FF)
	d.maskIndex++
	return v
}

func (d *UserLogicDecoder) setData(payload uint64) {
	d.data = payload
	d.maskIndex = 0
}

func (d *UserLogicDecoder) enterErrorMode(err error) {
	d.state = ulErrorMode
	d.err = err
	d.stats.NofClusterSizeErrors++
}

// AppendPayload feeds one 50-bit UserLogic payload word, as routed by the
// UserLogic GBT demultiplexer to this e-link's (linkIndex, elinkIndex).
func (d *UserLogicDecoder) AppendPayload(payload uint64) {
	syncVal := sampa.SyncHeader().Uint64()

	switch d.state {
	case ulWaitingSync:
		if payload == syncVal {
			d.state = ulWaitingHeader
			d.headerParts = d.headerParts[:0]
			d.stats.NofSync++
		}
		return
	case ulWaitingHeader:
		if payload == syncVal {
			d.headerParts = d.headerParts[:0]
			d.stats.NofSync++
			return
		}
		d.setData(payload)
	case ulErrorMode:
		if payload == syncVal {
			d.state = ulWaitingHeader
			d.headerParts = d.headerParts[:0]
			d.err = nil
			d.stats.NofSync++
		}
		return
	default:
		d.setData(payload)
	}

	d.drain()
}

func (d *UserLogicDecoder) drain() {
	for {
		switch d.state {
		case ulWaitingHeader:
			if d.remaining() == 0 {
				return
			}
			d.headerParts = append(d.headerParts, d.pop10())
			if len(d.headerParts) < 5 {
				continue
			}
			d.assembleHeader()
			d.state = ulWaitingSize
			continue

		case ulWaitingSize:
			if d.n10 == 0 {
				d.state = ulWaitingHeader
				d.headerParts = d.headerParts[:0]
				continue
			}
			if d.remaining() == 0 {
				return
			}
			raw := d.pop10()
			d.n10--
			// raw is the nofSamples metadata word (spec §4.4), mirroring
			// the Bare format's nofSamples field. In charge-sum mode the
			// wire payload is always exactly 2 words (a 20-bit sum split
			// across two 10-bit words) regardless of raw's value; in
			// sample mode raw also doubles as the number of payload
			// words, one per sample.
			size := raw
			if d.chargeSumMode {
				size = 2
			}
			if size == 0 || int(size)+1 > int(d.n10) {
				d.enterErrorMode(fmt.Errorf("cluster size %d inconsistent with %d remaining words", size, d.n10))
				return
			}
			d.clusterSize = size
			d.clusterNofSamples = raw
			d.state = ulWaitingTime
			continue

		case ulWaitingTime:
			if d.remaining() == 0 {
				return
			}
			d.clusterTime = d.pop10()
			d.n10--
			d.sampleWordsLeft = d.clusterSize
			d.samples = d.samples[:0]
			d.haveChargeSumLow = false
			d.state = ulWaitingSample
			continue

		case ulWaitingSample:
			if d.sampleWordsLeft == 0 {
				d.emitCluster()
				if d.n10 > 0 {
					d.state = ulWaitingSize
				} else {
					d.state = ulWaitingHeader
					d.headerParts = d.headerParts[:0]
					// The packet ended inside this payload word; the rest
					// of it is the encoder's zero-sub-word padding.
					d.maskIndex = 5
				}
				continue
			}
			if d.remaining() == 0 {
				return
			}
			v := d.pop10()
			d.n10--
			d.sampleWordsLeft--
			if d.chargeSumMode {
				if !d.haveChargeSumLow {
					d.chargeSumLow = v
					d.haveChargeSumLow = true
				} else {
					d.samples = append(d.samples, d.chargeSumLow, v)
					d.haveChargeSumLow = false
				}
			} else {
				d.samples = append(d.samples, v)
			}
			continue

		default:
			return
		}
	}
}

func (d *UserLogicDecoder) assembleHeader() {
	var v uint64
	for i, part := range d.headerParts {
		v |= uint64(part) << uint(i*10)
	}
	_ = d.header.SetUint64(v)

	if d.header.HasHammingError() {
		d.stats.NofHammingErrors++
	}
	if d.header.HasParityError() {
		d.stats.NofHeaderParityErrors++
	}

	pkt := d.header.PacketType()
	switch {
	case pkt.IsData():
		d.n10 = d.header.Nof10BitWords()
	case pkt == format.HeartBeat:
		if d.onHeartbeat != nil {
			d.onHeartbeat(d.header.ChipAddress())
		}
		d.n10 = 0
	default:
		d.n10 = 0
	}
}

func (d *UserLogicDecoder) emitCluster() {
	channel := chipAndAddressToChannel(d.header.ChipAddress(), d.header.ChannelAddress())

	var (
		cluster sampa.Cluster
		err     error
	)
	if d.chargeSumMode {
		a, b := d.samples[0], d.samples[1]
		chargeSum := (uint32(b) << 10) | uint32(a)
		cluster, err = sampa.NewChargeSumCluster(d.clusterTime, d.header.BunchCrossing(), chargeSum, d.clusterNofSamples)
	} else {
		cluster, err = sampa.NewSampleCluster(d.clusterTime, d.header.BunchCrossing(), d.samples)
	}
	if err == nil && d.onCluster != nil {
		d.onCluster(channel, cluster)
	}
}

// String renders a compact one-line diagnostic, in the spirit of the
// original C++ implementation's operator<< overloads on these state
// machines.
func (d *UserLogicDecoder) String() string {
	return fmt.Sprintf("UserLogicDecoder{state=%s sync=%d hammingErr=%d parityErr=%d clusterSizeErr=%d}",
		d.state, d.stats.NofSync, d.stats.NofHammingErrors, d.stats.NofHeaderParityErrors, d.stats.NofClusterSizeErrors)
}
