package gbt

import (
	"fmt"

	"github.com/aphecetche/mchraw/elink"
	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/sampa"
)

const (
	ulPayloadMask = (uint64(1) << 50) - 1
	ulElinkShift  = 53
	ulElinkMask   = 0x3F
	ulLinkShift   = 59
	ulLinkMask    = 0x1F

	// FillerWord carries an all-zero payload and is skipped by the demux.
	FillerWord uint64 = 0

	// IdleWord marks a link with nothing to say at this cycle and is
	// skipped by the demux.
	IdleWord uint64 = 0xFEEDDEEDFEEDDEED
)

// packUserLogicWord builds one 64-bit UserLogic GBT word, LSB-first:
// payload50 | errorBits3 | elinkIndex6 | linkIndex5.
func packUserLogicWord(payload uint64, errorBits uint8, elinkIndex uint8, linkIndex uint8) uint64 {
	return (payload & ulPayloadMask) |
		(uint64(errorBits&0x7) << 50) |
		(uint64(elinkIndex&ulElinkMask) << ulElinkShift) |
		(uint64(linkIndex&ulLinkMask) << ulLinkShift)
}

func unpackUserLogicWord(word uint64) (payload uint64, errorBits uint8, elinkIndex uint8, linkIndex uint8) {
	payload = word & ulPayloadMask
	errorBits = uint8((word >> 50) & 0x7)
	elinkIndex = uint8((word >> ulElinkShift) & ulElinkMask)
	linkIndex = uint8((word >> ulLinkShift) & ulLinkMask)
	return
}

// PeekUserLogicLink extracts the linkIndex tag from a UserLogic word
// without routing it to any decoder, for callers that multiplex several
// physical links' worth of words through one demux dispatch table and need
// to pick the right UserLogicDemux before calling AppendWord. isControl is
// true for filler/idle words, which carry no linkIndex.
func PeekUserLogicLink(word uint64) (linkIndex uint8, isControl bool) {
	if word == FillerWord || word == IdleWord {
		return 0, true
	}
	_, _, _, linkIndex = unpackUserLogicWord(word)
	return linkIndex, false
}

// UserLogicMux tags every e-link's queued 50-bit payload words with
// (linkIndex, elinkIndex) and concatenates them, e-link by e-link, into
// the 64-bit wire word stream of §4.6, skipping nothing: the caller decides when to emit filler
// or idle words for links with no pending payload.
type UserLogicMux struct {
	linkIndex uint8
	encoders  [NofElinks]*elink.UserLogicEncoder
}

// NewUserLogicMux wires up a fresh UserLogicEncoder per e-link for the
// given CRU link index, all in the given charge-sum mode.
func NewUserLogicMux(linkIndex uint8, chargeSumMode bool) *UserLogicMux {
	m := &UserLogicMux{linkIndex: linkIndex}
	for i := range m.encoders {
		m.encoders[i] = elink.NewUserLogicEncoder(chargeSumMode)
	}
	return m
}

// Encoder returns the UserLogicEncoder for the e-link at elinkIndex.
func (m *UserLogicMux) Encoder(elinkIndex uint8) (*elink.UserLogicEncoder, error) {
	if elinkIndex >= NofElinks {
		return nil, fmt.Errorf("%w: elinkIndex=%d", errs.ErrBadElecAddress, elinkIndex)
	}
	return m.encoders[elinkIndex], nil
}

// Words drains every e-link's queued payload words into tagged 64-bit GBT
// words, in e-link-major order. Links with no payload contribute nothing;
// the caller is responsible for interleaving idle/filler words to keep
// all links aligned if the downstream consumer expects a fixed cadence.
func (m *UserLogicMux) Words() []uint64 {
	var words []uint64
	for i, e := range m.encoders {
		for _, payload := range e.Payloads() {
			words = append(words, packUserLogicWord(payload, 0, uint8(i), m.linkIndex))
		}
	}
	return words
}

// UserLogicDemux routes 64-bit UserLogic GBT words to the matching
// e-link's UserLogicDecoder, skipping filler and idle words (§4.6).
type UserLogicDemux struct {
	decoders [NofElinks]*elink.UserLogicDecoder
}

// NewUserLogicDemux wires one UserLogicDecoder per e-link.
func NewUserLogicDemux(chargeSumMode bool, onCluster func(elinkIndex uint8, channel uint8, cluster sampa.Cluster), onHeartbeat func(elinkIndex uint8, chipAddress uint8)) *UserLogicDemux {
	d := &UserLogicDemux{}
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
		d.decoders[i] = elink.NewUserLogicDecoder(chargeSumMode, cb, hb)
	}
	return d
}

// Decoder returns the UserLogicDecoder for the e-link at elinkIndex.
func (d *UserLogicDemux) Decoder(elinkIndex uint8) (*elink.UserLogicDecoder, error) {
	if elinkIndex >= NofElinks {
		return nil, fmt.Errorf("%w: elinkIndex=%d", errs.ErrBadElecAddress, elinkIndex)
	}
	return d.decoders[elinkIndex], nil
}

// AppendWord routes one 64-bit wire word to its target e-link, or skips it
// if it is a filler or idle marker. linkIndex is returned for callers that
// multiplex several CRU links' worth of words through one demux call site
// and need to dispatch to the right UserLogicDemux instance themselves.
func (d *UserLogicDemux) AppendWord(word uint64) (linkIndex uint8, err error) {
	if word == FillerWord || word == IdleWord {
		return 0, nil
	}
	payload, _, elinkIndex, linkIndex := unpackUserLogicWord(word)
	if elinkIndex >= NofElinks {
		return linkIndex, fmt.Errorf("%w: elinkIndex=%d", errs.ErrBadElecAddress, elinkIndex)
	}
	d.decoders[elinkIndex].AppendPayload(payload)
	return linkIndex, nil
}
