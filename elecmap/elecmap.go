// Package elecmap defines the electronic-address value types and the
// read-only boundary the embedding uses to resolve them to detector
// elements (spec §3.1, §3.5). The production mapping tables (DCS alias
// generation, detection-element naming) are explicitly out of scope
// (spec §1); this package only fixes the interface shape, grounded on the
// small, pure lookup structures the original C++ implementation exposes in
// ElecMap/src/CruLinkId.cxx, plus a StaticMap reference implementation for
// tests.
package elecmap

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
)

// DsElecId is the electronic address of a dual-SAMPA board: a SOLAR id, an
// e-link group in [0,7], and an e-link index within that group in [0,4].
type DsElecId struct {
	SolarId           uint16
	ElinkGroup        uint8
	ElinkIndexInGroup uint8
}

// NewDsElecId validates and builds a DsElecId.
func NewDsElecId(solarId uint16, elinkGroup uint8, elinkIndexInGroup uint8) (DsElecId, error) {
	if elinkGroup > 7 {
		return DsElecId{}, fmt.Errorf("%w: elinkGroup=%d out of [0,7]", errs.ErrBadArgument, elinkGroup)
	}
	if elinkIndexInGroup > 4 {
		return DsElecId{}, fmt.Errorf("%w: elinkIndexInGroup=%d out of [0,4]", errs.ErrBadArgument, elinkIndexInGroup)
	}
	return DsElecId{SolarId: solarId, ElinkGroup: elinkGroup, ElinkIndexInGroup: elinkIndexInGroup}, nil
}

// DsElecIdFromElinkIndex builds a DsElecId from a flat e-link index in
// [0,39], the inverse of ElinkIndex.
func DsElecIdFromElinkIndex(solarId uint16, elinkIndex uint8) (DsElecId, error) {
	if elinkIndex > 39 {
		return DsElecId{}, fmt.Errorf("%w: elinkIndex=%d out of [0,39]", errs.ErrBadElecAddress, elinkIndex)
	}
	return DsElecId{SolarId: solarId, ElinkGroup: elinkIndex / 5, ElinkIndexInGroup: elinkIndex % 5}, nil
}

// ElinkIndex returns the flat e-link index within the SOLAR, in [0,39].
func (d DsElecId) ElinkIndex() uint8 {
	return d.ElinkGroup*5 + d.ElinkIndexInGroup
}

// String renders the `S<solar>-J<group>-DS<index>` form used throughout
// spec §8's test-vector scenarios.
func (d DsElecId) String() string {
	return fmt.Sprintf("S%d-J%d-DS%d", d.SolarId, d.ElinkGroup, d.ElinkIndexInGroup)
}

// FeeLinkId identifies a link inside a CRU endpoint.
type FeeLinkId struct {
	FeeId     uint16
	LinkInFee uint8 // [0,11]
}

// NewFeeLinkId validates and builds a FeeLinkId.
func NewFeeLinkId(feeId uint16, linkInFee uint8) (FeeLinkId, error) {
	if linkInFee > 11 {
		return FeeLinkId{}, fmt.Errorf("%w: linkInFee=%d out of [0,11]", errs.ErrBadArgument, linkInFee)
	}
	return FeeLinkId{FeeId: feeId, LinkInFee: linkInFee}, nil
}

func (f FeeLinkId) String() string {
	return fmt.Sprintf("FEE%d/%d", f.FeeId, f.LinkInFee)
}

// CruId returns feeId & 0xFF (spec §3.5).
func CruId(feeId uint16) uint16 { return feeId & 0xFF }

// ChargeSumMode reports whether bit 8 of feeId is set, the dispatch token
// that selects ChargeSum vs Sample mode (spec §3.5). The payload alone
// never carries this bit.
func ChargeSumMode(feeId uint16) bool { return feeId&0x100 != 0 }

// Map is the read-only electronic-to-detector boundary the embedding
// provides. It is consulted only at block/page boundaries, never in the
// per-bit decode loop (spec §6.2).
type Map interface {
	// FeeLinkToSolar resolves a FeeLinkId to the solarId of the SOLAR
	// board it carries.
	FeeLinkToSolar(FeeLinkId) (solarId uint16, ok bool)
	// SolarToFeeLink is the inverse of FeeLinkToSolar.
	SolarToFeeLink(solarId uint16) (FeeLinkId, bool)
	// ElecToDet resolves a dual-SAMPA electronic address to its detection
	// element and dual-SAMPA identifiers.
	ElecToDet(DsElecId) (detElemId int, dualSampaId int, ok bool)
}
