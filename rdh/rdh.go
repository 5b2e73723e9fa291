// Package rdh implements the RDH v4 page header (§3.4, §6.1) and the page
// encoder/decoder built on top of it (§4.7). Grounded on
// original_source Common/include/MCHRawCommon/RDHManip.h for the
// operation set (assert/append/create/isValid/countRDHs/forEachRDH).
// Parse/Bytes marshal a fixed-size struct through the little-endian
// engine, with the byte offsets listed once below.
package rdh

import (
	"fmt"

	"github.com/aphecetche/mchraw/endian"
	"github.com/aphecetche/mchraw/errs"
)

// Size is the fixed byte size of one RDH v4.
const Size = 64

// Version is the only RDH version this package understands (spec
// Non-goals: no support for other RDH versions).
const Version uint8 = 4

// Trigger-type bits set by the encoder on heartbeat and time-frame
// boundaries. Bit positions are an implementation choice (the spec leaves
// them open); see DESIGN.md.
const (
	TriggerTypeHB uint32 = 1 << 0
	TriggerTypeTF uint32 = 1 << 1
)

// RDH is the 64-byte Raw Data Header v4, little-endian on the wire.
type RDH struct {
	Version       uint8
	HeaderSize    uint8
	BlockLength   uint16
	FeeId         uint16
	PriorityBit   uint8
	OffsetToNext  uint16
	MemorySize    uint16
	LinkId        uint8
	PacketCounter uint8
	CruId         uint16 // 12 bits
	Endpoint      uint8  // 4 bits
	TriggerOrbit  uint32
	HeartbeatOrbit uint32
	TriggerBC     uint16 // 12 bits
	HeartbeatBC   uint16 // 12 bits
	TriggerType   uint32
	DetectorField uint16
	Par           uint16
	StopBit       uint8
	PageCounter   uint16
}

// New returns an RDH with Version/HeaderSize pre-filled.
func New() RDH {
	return RDH{Version: Version, HeaderSize: Size}
}

// byte offsets, documented once here rather than per-field.
const (
	offVersion       = 0
	offHeaderSize    = 1
	offBlockLength   = 2
	offFeeId         = 4
	offPriorityBit   = 6
	offOffsetToNext  = 8
	offMemorySize    = 10
	offLinkId        = 12
	offPacketCounter = 13
	offCruEndpoint   = 14
	offTriggerOrbit  = 16
	offHeartbeatOrbit = 20
	offTriggerBC     = 32
	offHeartbeatBC   = 34
	offTriggerType   = 36
	offDetectorField = 48
	offPar           = 50
	offStopBit       = 52
	offPageCounter   = 53
)

// Parse decodes one RDH from exactly Size bytes.
func (h *RDH) Parse(b []byte) error {
	if len(b) != Size {
		return fmt.Errorf("%w: rdh buffer has %d bytes, want %d", errs.ErrRdhInvalid, len(b), Size)
	}
	e := endian.GetLittleEndianEngine()

	h.Version = b[offVersion]
	h.HeaderSize = b[offHeaderSize]
	h.BlockLength = e.Uint16(b[offBlockLength:])
	h.FeeId = e.Uint16(b[offFeeId:])
	h.PriorityBit = b[offPriorityBit]
	h.OffsetToNext = e.Uint16(b[offOffsetToNext:])
	h.MemorySize = e.Uint16(b[offMemorySize:])
	h.LinkId = b[offLinkId]
	h.PacketCounter = b[offPacketCounter]

	cruEndpoint := e.Uint16(b[offCruEndpoint:])
	h.CruId = cruEndpoint & 0x0FFF
	h.Endpoint = uint8(cruEndpoint >> 12)

	h.TriggerOrbit = e.Uint32(b[offTriggerOrbit:])
	h.HeartbeatOrbit = e.Uint32(b[offHeartbeatOrbit:])

	triggerBCField := e.Uint16(b[offTriggerBC:])
	h.TriggerBC = triggerBCField & 0x0FFF
	heartbeatBCField := e.Uint16(b[offHeartbeatBC:])
	h.HeartbeatBC = heartbeatBCField & 0x0FFF

	h.TriggerType = e.Uint32(b[offTriggerType:])
	h.DetectorField = e.Uint16(b[offDetectorField:])
	h.Par = e.Uint16(b[offPar:])
	h.StopBit = b[offStopBit]
	h.PageCounter = e.Uint16(b[offPageCounter:])

	if err := h.validateFields(); err != nil {
		return err
	}
	return nil
}

func (h *RDH) validateFields() error {
	if h.Version != Version {
		return fmt.Errorf("%w: version=%d, want %d", errs.ErrRdhInvalid, h.Version, Version)
	}
	if h.HeaderSize != Size {
		return fmt.Errorf("%w: headerSize=%d, want %d", errs.ErrRdhInvalid, h.HeaderSize, Size)
	}
	return nil
}

// Bytes serializes h into a fresh Size-byte little-endian buffer.
func (h RDH) Bytes() []byte {
	b := make([]byte, Size)
	e := endian.GetLittleEndianEngine()

	b[offVersion] = h.Version
	b[offHeaderSize] = h.HeaderSize
	e.PutUint16(b[offBlockLength:], h.BlockLength)
	e.PutUint16(b[offFeeId:], h.FeeId)
	b[offPriorityBit] = h.PriorityBit
	e.PutUint16(b[offOffsetToNext:], h.OffsetToNext)
	e.PutUint16(b[offMemorySize:], h.MemorySize)
	b[offLinkId] = h.LinkId
	b[offPacketCounter] = h.PacketCounter
	e.PutUint16(b[offCruEndpoint:], (uint16(h.Endpoint)<<12)|(h.CruId&0x0FFF))
	e.PutUint32(b[offTriggerOrbit:], h.TriggerOrbit)
	e.PutUint32(b[offHeartbeatOrbit:], h.HeartbeatOrbit)
	e.PutUint16(b[offTriggerBC:], h.TriggerBC&0x0FFF)
	e.PutUint16(b[offHeartbeatBC:], h.HeartbeatBC&0x0FFF)
	e.PutUint32(b[offTriggerType:], h.TriggerType)
	e.PutUint16(b[offDetectorField:], h.DetectorField)
	e.PutUint16(b[offPar:], h.Par)
	b[offStopBit] = h.StopBit
	e.PutUint16(b[offPageCounter:], h.PageCounter)

	return b
}

// IsValid reports whether h passes the version/size checks Parse applies.
func (h RDH) IsValid() bool { return h.validateFields() == nil }

// DecodeFeeId splits a feeId into its CRU id and charge-sum mode bit
// (§3.5).
func DecodeFeeId(feeId uint16) (cruId uint16, chargeSumMode bool) {
	return feeId & 0xFF, feeId&0x100 != 0
}

// String renders a compact diagnostic line.
func (h RDH) String() string {
	return fmt.Sprintf("v%d feeId=0x%04X linkId=%d orbit=%d/%d bc=%d/%d pkt=%d page=%d stop=%d mem=%d next=%d",
		h.Version, h.FeeId, h.LinkId, h.TriggerOrbit, h.HeartbeatOrbit, h.TriggerBC, h.HeartbeatBC,
		h.PacketCounter, h.PageCounter, h.StopBit, h.MemorySize, h.OffsetToNext)
}
