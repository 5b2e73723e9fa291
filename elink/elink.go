// Package elink implements the per-e-link bit-level state machines: one
// pair of ElinkDecoder/ElinkEncoder per e-link, for each of the two on-wire
// formats (Bare, UserLogic). Grounded on original_source
// Decoder/src/BareElinkDecoder.cxx, Decoder/src/UserLogicElinkDecoder.cxx
// (itself built from the Actions/States/Guards/Events/
// NormalDecodingStateMachine headers), and Encoder/Bare/BareElinkEncoder.cxx.
//
// Every exported Decoder/Encoder in this package holds mutable state and is
// not safe for concurrent use by multiple goroutines (spec §5); distinct
// e-links may run on distinct goroutines with no shared state.
package elink

import (
	"fmt"

	"github.com/aphecetche/mchraw/sampa"
)

// ClusterHandler receives one decoded cluster for one channel on one
// e-link. channel is in [0,63]: chipAddress*32 + channelAddress, the two
// SAMPA chips of a dual-SAMPA board addressed as channel groups [0,31] and
// [32,63]. The handler must not retain references into cluster after it
// returns; Cluster is a value type and is moved into the callback, matching
// the original SampaChannelHandler design note (spec §9).
type ClusterHandler func(channel uint8, cluster sampa.Cluster)

// HeartbeatHandler receives a notification that a heartbeat packet was
// seen on this e-link, carrying the chip address it came from.
type HeartbeatHandler func(chipAddress uint8)

// Stats are the per-link statistics surfaced by the decoder (spec §6.2):
// sync-seen count, hamming-error count, header-parity-error count, and
// cluster-size-error count. Orbit-jump count is tracked at the page level
// (rdh.Decoder), not per e-link, since an orbit jump is a single stream-
// wide event that resets every link simultaneously rather than a
// per-link observation (see DESIGN.md "Open Question: orbit-jump stats").
type Stats struct {
	NofSync                uint64
	NofHammingErrors       uint64
	NofHeaderParityErrors  uint64
	NofClusterSizeErrors   uint64
}

func channelToChipAndAddress(channel uint8) (chip uint8, addr uint8) {
	return channel / 32, channel % 32
}

func chipAndAddressToChannel(chip uint8, addr uint8) uint8 {
	return chip*32 + addr
}

func fmtChannel(channel uint8) string {
	chip, addr := channelToChipAndAddress(channel)
	return fmt.Sprintf("chip=%d addr=%d", chip, addr)
}
