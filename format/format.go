// Package format defines the small tagged-enum types shared by the codec:
// the on-wire link Format, the cluster Mode, and the SAMPA PacketType. They
// replace the template explosion of Format x Mode x RDH-version variants
// the original C++ implementation built with compile-time specializations
// (see the Design Notes in SPEC_FULL.md): here the pipeline branches on
// these enums once, at dispatch time.
package format

// Format identifies the on-wire encoding of an e-link payload.
type Format uint8

const (
	// Bare is the serial-bitstream format: 2 bits of payload per e-link
	// per GBT word, demultiplexed from the low 80 bits of each 128-bit
	// GBT word.
	Bare Format = iota
	// UserLogic is the CRU-demultiplexed format: one 64-bit tagged word
	// per e-link payload chunk.
	UserLogic
)

// UserLogicRdhLinkId is the RDH linkId value reserved to mean "this page's
// payload is UserLogic-framed" rather than a physical SOLAR link (spec
// §4.8).
const UserLogicRdhLinkId uint8 = 15

func (f Format) String() string {
	switch f {
	case Bare:
		return "Bare"
	case UserLogic:
		return "UserLogic"
	default:
		return "Unknown"
	}
}

// Mode identifies whether a SAMPA cluster carries a pre-computed charge sum
// or a vector of individual time samples.
type Mode uint8

const (
	// SampleMode clusters carry a vector of 10-bit samples.
	SampleMode Mode = iota
	// ChargeSumMode clusters carry a single 20-bit charge sum.
	ChargeSumMode
)

func (m Mode) String() string {
	switch m {
	case SampleMode:
		return "Sample"
	case ChargeSumMode:
		return "ChargeSum"
	default:
		return "Unknown"
	}
}

// PacketType is the 3-bit packet-type field of a SAMPA header (spec §3.3).
type PacketType uint8

const (
	HeartBeat                     PacketType = 0
	DataTruncated                 PacketType = 1
	Sync                          PacketType = 2
	DataTruncatedTriggerTooEarly  PacketType = 3
	Data                          PacketType = 4
	DataNumWords                  PacketType = 5
	DataTriggerTooEarly           PacketType = 6
	DataTriggerTooEarlyNumWords   PacketType = 7
)

func (p PacketType) String() string {
	switch p {
	case HeartBeat:
		return "HeartBeat"
	case DataTruncated:
		return "DataTruncated"
	case Sync:
		return "Sync"
	case DataTruncatedTriggerTooEarly:
		return "DataTruncatedTriggerTooEarly"
	case Data:
		return "Data"
	case DataNumWords:
		return "DataNumWords"
	case DataTriggerTooEarly:
		return "DataTriggerTooEarly"
	case DataTriggerTooEarlyNumWords:
		return "DataTriggerTooEarlyNumWords"
	default:
		return "Unknown"
	}
}

// IsData reports whether p carries 10-bit data words (as opposed to Sync or
// HeartBeat, which carry none).
func (p PacketType) IsData() bool {
	switch p {
	case Data, DataNumWords, DataTriggerTooEarly, DataTriggerTooEarlyNumWords,
		DataTruncated, DataTruncatedTriggerTooEarly:
		return true
	default:
		return false
	}
}
