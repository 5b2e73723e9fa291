// Package sampa implements the SAMPA 50-bit header (bit layout, Hamming(6,3)
// plus parity protection, packet-type taxonomy, sync pattern) and the
// SampaCluster value type, shared by the Bare and UserLogic encoder/decoder
// pipelines. Grounded on original_source Common/src/SampaHeader.cxx and
// Common/src/SampaCluster.cxx.
package sampa

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
)

const (
	hammingOffset  = 0
	parityOffset   = 6
	packetOffset   = 7
	nof10Offset    = 10
	chipOffset     = 20
	channelOffset  = 24
	bcOffset       = 29
	payloadOffset  = 49

	hammingMask = 0x000000000003F
	parityMask  = 0x0000000000040
	packetMask  = 0x0000000000380
	nof10Mask   = 0x00000000FFC00
	chipMask    = 0x0000000F00000
	channelMask = 0x000001F000000
	bcMask      = 0x1FFFFE0000000
	payloadMask = 0x2000000000000

	// HeaderBits is the width in bits of a SAMPA header.
	HeaderBits = 50
)

// Header is a 50-bit SAMPA header, stored in its natural little-endian
// uint64 representation (bit 0 is the first transmitted bit).
type Header uint64

// NewHeader builds a header from its fields. hamming and headerParity are
// set to zero; callers producing a header for transmission should call
// Sign() to fill them in from ComputeHamming/ComputeHeaderParity.
func NewHeader(pkt format.PacketType, nof10BitWords uint16, chipAddress uint8, channelAddress uint8, bunchCrossing uint32, payloadParity bool) (Header, error) {
	var h Header
	if err := h.SetPacketType(pkt); err != nil {
		return 0, err
	}
	if err := h.SetNof10BitWords(nof10BitWords); err != nil {
		return 0, err
	}
	if err := h.SetChipAddress(chipAddress); err != nil {
		return 0, err
	}
	if err := h.SetChannelAddress(channelAddress); err != nil {
		return 0, err
	}
	if err := h.SetBunchCrossing(bunchCrossing); err != nil {
		return 0, err
	}
	h.SetPayloadParity(payloadParity)

	return h, nil
}

// SyncHeader returns the fixed 50-bit sync-pattern header (spec §3.3).
func SyncHeader() Header {
	return Header(0x1555540F00113)
}

// assertBits fails if v does not fit in n bits.
func assertBits(name string, v uint64, n int) error {
	if v >= (uint64(1) << uint(n)) {
		return fmt.Errorf("%w: %s=%d does not fit in %d bits", errs.ErrBadArgument, name, v, n)
	}
	return nil
}

// Uint64 returns the raw 50-bit value.
func (h Header) Uint64() uint64 { return uint64(h) }

// SetUint64 sets the raw value; it must fit in 50 bits.
func (h *Header) SetUint64(v uint64) error {
	if err := assertBits("header", v, HeaderBits); err != nil {
		return err
	}
	*h = Header(v)
	return nil
}

func (h Header) HammingCode() uint8 { return uint8((uint64(h) & hammingMask) >> hammingOffset) }

func (h *Header) SetHammingCode(v uint8) error {
	if err := assertBits("hammingCode", uint64(v), 6); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ hammingMask) | (uint64(v) << hammingOffset))
	return nil
}

func (h Header) HeaderParity() bool { return (uint64(h)&parityMask)>>parityOffset == 1 }

func (h *Header) SetHeaderParity(p bool) {
	v := uint64(0)
	if p {
		v = 1
	}
	*h = Header((uint64(*h) &^ parityMask) | (v << parityOffset))
}

func (h Header) PacketType() format.PacketType {
	return format.PacketType((uint64(h) & packetMask) >> packetOffset)
}

func (h *Header) SetPacketType(p format.PacketType) error {
	if err := assertBits("packetType", uint64(p), 3); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ packetMask) | (uint64(p) << packetOffset))
	return nil
}

func (h Header) Nof10BitWords() uint16 { return uint16((uint64(h) & nof10Mask) >> nof10Offset) }

func (h *Header) SetNof10BitWords(n uint16) error {
	if err := assertBits("nof10BitWords", uint64(n), 10); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ nof10Mask) | (uint64(n) << nof10Offset))
	return nil
}

func (h Header) ChipAddress() uint8 { return uint8((uint64(h) & chipMask) >> chipOffset) }

func (h *Header) SetChipAddress(v uint8) error {
	if err := assertBits("chipAddress", uint64(v), 4); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ chipMask) | (uint64(v) << chipOffset))
	return nil
}

func (h Header) ChannelAddress() uint8 { return uint8((uint64(h) & channelMask) >> channelOffset) }

func (h *Header) SetChannelAddress(v uint8) error {
	if err := assertBits("channelAddress", uint64(v), 5); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ channelMask) | (uint64(v) << channelOffset))
	return nil
}

func (h Header) BunchCrossing() uint32 { return uint32((uint64(h) & bcMask) >> bcOffset) }

func (h *Header) SetBunchCrossing(v uint32) error {
	if err := assertBits("bunchCrossing", uint64(v), 20); err != nil {
		return err
	}
	*h = Header((uint64(*h) &^ bcMask) | (uint64(v) << bcOffset))
	return nil
}

func (h Header) PayloadParity() bool { return (uint64(h)&payloadMask)>>payloadOffset == 1 }

func (h *Header) SetPayloadParity(p bool) {
	v := uint64(0)
	if p {
		v = 1
	}
	*h = Header((uint64(*h) &^ payloadMask) | (v << payloadOffset))
}

// Sign fills in the hamming code and header parity bits from the rest of
// the header, matching BareElinkEncoder::setHeader in the original source.
func (h *Header) Sign() {
	_ = h.SetHammingCode(ComputeHamming(uint64(*h)))
	h.SetHeaderParity(ComputeHeaderParity(uint64(*h)))
}

// HasHammingError reports whether the stored Hamming code does not match
// the one computed from the rest of the header.
func (h Header) HasHammingError() bool {
	return ComputeHamming(uint64(h)) != h.HammingCode()
}

// HasParityError reports whether the stored header parity does not match
// the one computed from the rest of the header.
func (h Header) HasParityError() bool {
	want := ComputeHeaderParity(uint64(h))
	return want != h.HeaderParity()
}

// HasError reports a Hamming or parity mismatch.
func (h Header) HasError() bool {
	return h.HasHammingError() || h.HasParityError()
}

// IsHeartbeat reports whether h satisfies the heartbeat bit mask of §3.3:
// bits 7-9 clear, bits 10-19 clear, bits 24/26/28 set, bits 25/27 clear,
// bit 49 clear.
func (h Header) IsHeartbeat() bool {
	v := uint64(h)
	for i := 7; i <= 9; i++ {
		if v&(1<<uint(i)) != 0 {
			return false
		}
	}
	for i := 10; i <= 19; i++ {
		if v&(1<<uint(i)) != 0 {
			return false
		}
	}
	if v&(1<<24) == 0 || v&(1<<26) == 0 || v&(1<<28) == 0 {
		return false
	}
	if v&(1<<25) != 0 || v&(1<<27) != 0 {
		return false
	}
	if v&(1<<49) != 0 {
		return false
	}
	return true
}

// HeartbeatHeader returns a header matching the heartbeat bit mask for the
// given chip/channel/bunch-crossing.
func HeartbeatHeader(chipAddress uint8, bunchCrossing uint32) (Header, error) {
	h, err := NewHeader(format.HeartBeat, 0, chipAddress, 0b10101, bunchCrossing, false)
	if err != nil {
		return 0, err
	}
	return h, nil
}

// hammingConv maps a Hamming-sense bit position (1-based, index i means
// hamming position i+1) to the data-bit position in the 50-bit header, or
// -1 if that position carries a parity bit instead of data. Copied
// bit-for-bit from the `conv` table in computeHammingCode (original
// SampaHeader.cxx) -- the grouping is not derivable from the spec's prose
// and must match the hardware exactly.
var hammingConv = [49]int{
	-1, -1, 7, -1, 8, 9, 10, -1, 11, 12, 13, 14, 15, 16, 17,
	-1, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28,
	29, 30, 31, 32, -1, 33, 34, 35, 36, 37, 38, 39,
	40, 41, 42, 43, 44, 45, 46, 47, 48, 49,
}

func partialOddParity(value uint64, pos int) bool {
	n := 0
	test := uint64(1) << uint(pos)
	for i, t := range hammingConv {
		if t < 0 {
			continue
		}
		hammingPos := uint64(i + 1)
		if hammingPos&test != 0 {
			if value&(uint64(1)<<uint(t)) != 0 {
				n++
			}
		}
	}
	return (n+1)%2 == 0
}

// ComputeHamming computes the 6-bit Hamming(43,6) code over the 43 data
// bits of a 50-bit SAMPA header value (bits 7-49), interleaved with the
// parity bits at the positions documented in hammingConv.
func ComputeHamming(value uint64) uint8 {
	var hamming uint8
	for i := 0; i < 6; i++ {
		if partialOddParity(value, i) {
			hamming += 1 << uint(i)
		}
	}
	return hamming
}

// ComputeHeaderParity computes the odd parity of all 50 bits of value
// except bit 6 (the stored header-parity bit itself).
func ComputeHeaderParity(value uint64) bool {
	n := 0
	for i := 0; i < 50; i++ {
		if i == 6 {
			continue
		}
		if value&(uint64(1)<<uint(i)) != 0 {
			n++
		}
	}
	return (n+1)%2 == 0
}

// String renders a compact one-line diagnostic, in the spirit of the
// original C++ implementation's operator<< overloads on these state
// machines.
func (h Header) String() string {
	return fmt.Sprintf("pkt=%s n10=%d chip=%d ch=%d bc=%d hammingErr=%v parityErr=%v",
		h.PacketType(), h.Nof10BitWords(), h.ChipAddress(), h.ChannelAddress(),
		h.BunchCrossing(), h.HasHammingError(), h.HasParityError())
}
