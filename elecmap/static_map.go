package elecmap

import (
	"fmt"
	"sync"

	"github.com/aphecetche/mchraw/internal/hash"
)

// MissingMappingHandler is invoked the first time a given key has no entry
// in a StaticMap. It is never invoked twice for the same key, matching the
// spec §9 design note that a missing mapping "should be reported once per
// distinct missing key, not once per call" -- the same de-duplication shape
// internal/hash.ID gives hash-based identification elsewhere in this
// codebase, here applied to de-duplicate diagnostics instead of metric
// identifiers.
type MissingMappingHandler func(key string)

// StaticMap is a plain map-backed Map implementation for tests and
// examples. It is not production mapping data: the real detection-element
// tables are out of scope (spec §1 OUT OF SCOPE).
//
// Every method, the Add* writers and the lookups alike, holds one mutex,
// which also guards the xxhash-keyed report-once set, so a StaticMap can
// be shared by several decoder goroutines.
type StaticMap struct {
	mu sync.Mutex

	feeToSolar map[FeeLinkId]uint16
	solarToFee map[uint16]FeeLinkId
	elecToDet  map[DsElecId][2]int

	onMissing MissingMappingHandler
	reported  map[uint64]struct{}
}

// NewStaticMap creates an empty StaticMap. onMissing may be nil, in which
// case missing-mapping lookups are silently reported as not-ok.
func NewStaticMap(onMissing MissingMappingHandler) *StaticMap {
	return &StaticMap{
		feeToSolar: make(map[FeeLinkId]uint16),
		solarToFee: make(map[uint16]FeeLinkId),
		elecToDet:  make(map[DsElecId][2]int),
		onMissing:  onMissing,
		reported:   make(map[uint64]struct{}),
	}
}

// AddFeeLink registers the two-way FeeLinkId <-> solarId mapping.
func (m *StaticMap) AddFeeLink(fee FeeLinkId, solarId uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.feeToSolar[fee] = solarId
	m.solarToFee[solarId] = fee
}

// AddElecToDet registers a DsElecId -> (detElemId, dualSampaId) mapping.
func (m *StaticMap) AddElecToDet(ds DsElecId, detElemId, dualSampaId int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.elecToDet[ds] = [2]int{detElemId, dualSampaId}
}

func (m *StaticMap) reportMissing(key string) {
	h := hash.ID(key)
	if _, seen := m.reported[h]; seen {
		return
	}
	m.reported[h] = struct{}{}
	if m.onMissing != nil {
		m.onMissing(key)
	}
}

// FeeLinkToSolar implements Map.
func (m *StaticMap) FeeLinkToSolar(fee FeeLinkId) (uint16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	solarId, ok := m.feeToSolar[fee]
	if !ok {
		m.reportMissing(fmt.Sprintf("feeLinkToSolar(%s)", fee))
	}
	return solarId, ok
}

// SolarToFeeLink implements Map.
func (m *StaticMap) SolarToFeeLink(solarId uint16) (FeeLinkId, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fee, ok := m.solarToFee[solarId]
	if !ok {
		m.reportMissing(fmt.Sprintf("solarToFeeLink(%d)", solarId))
	}
	return fee, ok
}

// ElecToDet implements Map.
func (m *StaticMap) ElecToDet(ds DsElecId) (int, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.elecToDet[ds]
	if !ok {
		m.reportMissing(fmt.Sprintf("elecToDet(%s)", ds))
		return 0, 0, false
	}
	return v[0], v[1], true
}

var _ Map = (*StaticMap)(nil)
