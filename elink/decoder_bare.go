package elink

import (
	"fmt"

	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/sampa"
)

type bareState uint8

const (
	bareLookingForSync bareState = iota
	bareLookingForHeader
	bareReadingNofSamples
	bareReadingTimestamp
	bareReadingClusterSum
	bareReadingSample
)

func (s bareState) String() string {
	switch s {
	case bareLookingForSync:
		return "lookingForSync"
	case bareLookingForHeader:
		return "lookingForHeader"
	case bareReadingNofSamples:
		return "readingNofSamples"
	case bareReadingTimestamp:
		return "readingTimestamp"
	case bareReadingClusterSum:
		return "readingClusterSum"
	case bareReadingSample:
		return "readingSample"
	default:
		return "unknown"
	}
}

// BareDecoder is the bit-level state machine for one e-link in Bare format
// (spec §4.3). It consumes 2 bits at a time (as delivered by the Bare GBT
// demultiplexer) or one bit at a time via AppendBit.
type BareDecoder struct {
	chargeSumMode bool
	onCluster     ClusterHandler
	onHeartbeat   HeartbeatHandler

	state bareState
	stats Stats

	// 50-bit rolling sync-search window.
	syncWindow    uint64
	syncWindowLen int

	// generic field accumulator, used by every state except
	// bareLookingForSync.
	acc    uint64
	accLen int
	need   int

	header sampa.Header

	nof10ToRead uint16
	nofSamples  uint16
	timestamp   uint16
	samples     []uint16
}

// NewBareDecoder creates a BareDecoder. onCluster must not be nil;
// onHeartbeat may be nil if the caller does not need heartbeat
// notifications.
func NewBareDecoder(chargeSumMode bool, onCluster ClusterHandler, onHeartbeat HeartbeatHandler) *BareDecoder {
	d := &BareDecoder{chargeSumMode: chargeSumMode, onCluster: onCluster, onHeartbeat: onHeartbeat}
	d.resetField(50)
	return d
}

// Stats returns a snapshot of the link's statistics.
func (d *BareDecoder) Stats() Stats { return d.stats }

// Reset returns the decoder to LookingForSync, clearing all partial state
// but preserving the accumulated Stats counters (spec §4.3 "Reset
// semantics").
func (d *BareDecoder) Reset() {
	d.state = bareLookingForSync
	d.syncWindow = 0
	d.syncWindowLen = 0
	d.resetField(50)
	d.nof10ToRead = 0
	d.nofSamples = 0
	d.timestamp = 0
	d.samples = d.samples[:0]
}

func (d *BareDecoder) resetField(need int) {
	d.acc = 0
	d.accLen = 0
	d.need = need
}

// Append feeds two bits arriving together in one Bare GBT word slot (the
// older bit, then the newer one), matching BareElinkDecoder::append in the
// original source.
func (d *BareDecoder) Append(bit0, bit1 bool) {
	d.AppendBit(bit0)
	d.AppendBit(bit1)
}

// AppendBit feeds a single bit to the state machine.
func (d *BareDecoder) AppendBit(bit bool) {
	if d.state == bareLookingForSync {
		d.pushSyncWindow(bit)
		return
	}

	d.pushField(bit)
	if d.accLen == d.need {
		d.process()
	}
}

func (d *BareDecoder) pushSyncWindow(bit bool) {
	var b uint64
	if bit {
		b = 1
	}
	// Bits arrive LSB first, so each new bit enters at the top of the
	// 50-bit window and the oldest bit drops out at the bottom.
	d.syncWindow = (d.syncWindow >> 1) | (b << (sampa.HeaderBits - 1))
	if d.syncWindowLen < sampa.HeaderBits {
		d.syncWindowLen++
	}
	if d.syncWindowLen < sampa.HeaderBits {
		return
	}
	if d.syncWindow == sampa.SyncHeader().Uint64() {
		d.state = bareLookingForHeader
		d.resetField(50)
		d.stats.NofSync++
	}
}

func (d *BareDecoder) pushField(bit bool) {
	if bit {
		d.acc |= uint64(1) << uint(d.accLen)
	}
	d.accLen++
}

func (d *BareDecoder) process() {
	switch d.state {
	case bareLookingForHeader:
		d.handleHeader()
	case bareReadingNofSamples:
		d.nofSamples = uint16(d.acc)
		d.nof10ToRead--
		d.state = bareReadingTimestamp
		d.resetField(10)
	case bareReadingTimestamp:
		d.timestamp = uint16(d.acc)
		d.nof10ToRead--
		if d.chargeSumMode {
			d.state = bareReadingClusterSum
			d.resetField(20)
		} else {
			d.state = bareReadingSample
			d.resetField(10)
		}
	case bareReadingClusterSum:
		d.handleClusterSum()
	case bareReadingSample:
		d.handleSample()
	}
}

func (d *BareDecoder) handleHeader() {
	_ = d.header.SetUint64(d.acc)

	if d.header.HasHammingError() {
		d.stats.NofHammingErrors++
	}
	if d.header.HasParityError() {
		d.stats.NofHeaderParityErrors++
	}

	pkt := d.header.PacketType()
	switch {
	case pkt == format.Sync:
		d.stats.NofSync++
		d.resetField(50)
	case pkt == format.HeartBeat:
		if d.onHeartbeat != nil {
			d.onHeartbeat(d.header.ChipAddress())
		}
		d.resetField(50)
	case pkt.IsData():
		d.nof10ToRead = d.header.Nof10BitWords()
		d.state = bareReadingNofSamples
		d.resetField(10)
	default:
		d.resetField(50)
	}
}

func (d *BareDecoder) handleClusterSum() {
	chargeSum := uint32(d.acc)
	d.nof10ToRead -= 2

	channel := chipAndAddressToChannel(d.header.ChipAddress(), d.header.ChannelAddress())
	cluster, err := sampa.NewChargeSumCluster(d.timestamp, d.header.BunchCrossing(), chargeSum, d.nofSamples)
	if err == nil && d.onCluster != nil {
		d.onCluster(channel, cluster)
	}

	if d.nof10ToRead > 0 {
		d.state = bareReadingNofSamples
		d.resetField(10)
	} else {
		d.state = bareLookingForHeader
		d.resetField(50)
	}
}

func (d *BareDecoder) handleSample() {
	d.samples = append(d.samples, uint16(d.acc))
	if d.nofSamples > 0 {
		d.nofSamples--
	}
	d.nof10ToRead--

	if d.nofSamples > 0 {
		d.resetField(10)
		return
	}

	channel := chipAndAddressToChannel(d.header.ChipAddress(), d.header.ChannelAddress())
	cluster, err := sampa.NewSampleCluster(d.timestamp, d.header.BunchCrossing(), d.samples)
	if err == nil && d.onCluster != nil {
		d.onCluster(channel, cluster)
	}
	d.samples = d.samples[:0]

	if d.nof10ToRead > 0 {
		d.state = bareReadingNofSamples
		d.resetField(10)
	} else {
		d.state = bareLookingForHeader
		d.resetField(50)
	}
}

// String renders a compact one-line diagnostic, in the spirit of the
// original C++ implementation's operator<< overloads on these state
// machines.
func (d *BareDecoder) String() string {
	return fmt.Sprintf("BareDecoder{state=%s sync=%d hammingErr=%d parityErr=%d clusterSizeErr=%d}",
		d.state, d.stats.NofSync, d.stats.NofHammingErrors, d.stats.NofHeaderParityErrors, d.stats.NofClusterSizeErrors)
}
