package sampa

import (
	"fmt"
	"strings"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
)

// Cluster is one contiguous time-window of samples on one channel, or its
// pre-computed charge sum (spec §3.2). The two modes are mutually
// exclusive; within one data block sent to an encoder all clusters for a
// given channel MUST share the same mode (checked by the encoder, not by
// this type).
type Cluster struct {
	Mode format.Mode

	Timestamp     uint16 // 10 bits
	BunchCrossing uint32 // 20 bits, stamped from the enclosing SAMPA header

	// ChargeSum mode fields.
	ChargeSum  uint32 // 20 bits
	NofSamples uint16 // 10 bits; in sample mode this equals len(Samples)

	// Sample mode field.
	Samples []uint16 // 10 bits each, N >= 1
}

// NewChargeSumCluster builds a charge-sum-mode cluster.
func NewChargeSumCluster(timestamp uint16, bunchCrossing uint32, chargeSum uint32, nofSamples uint16) (Cluster, error) {
	if err := assertBits("timestamp", uint64(timestamp), 10); err != nil {
		return Cluster{}, err
	}
	if err := assertBits("bunchCrossing", uint64(bunchCrossing), 20); err != nil {
		return Cluster{}, err
	}
	if err := assertBits("chargeSum", uint64(chargeSum), 20); err != nil {
		return Cluster{}, err
	}
	if err := assertBits("nofSamples", uint64(nofSamples), 10); err != nil {
		return Cluster{}, err
	}

	return Cluster{
		Mode:          format.ChargeSumMode,
		Timestamp:     timestamp,
		BunchCrossing: bunchCrossing,
		ChargeSum:     chargeSum,
		NofSamples:    nofSamples,
	}, nil
}

// NewSampleCluster builds a sample-mode cluster. samples must be non-empty.
func NewSampleCluster(timestamp uint16, bunchCrossing uint32, samples []uint16) (Cluster, error) {
	if len(samples) == 0 {
		return Cluster{}, fmt.Errorf("%w: cannot build a sample cluster with no samples", errs.ErrBadArgument)
	}
	if err := assertBits("timestamp", uint64(timestamp), 10); err != nil {
		return Cluster{}, err
	}
	if err := assertBits("bunchCrossing", uint64(bunchCrossing), 20); err != nil {
		return Cluster{}, err
	}
	for i, s := range samples {
		if err := assertBits(fmt.Sprintf("samples[%d]", i), uint64(s), 10); err != nil {
			return Cluster{}, err
		}
	}

	cp := make([]uint16, len(samples))
	copy(cp, samples)

	return Cluster{
		Mode:          format.SampleMode,
		Timestamp:     timestamp,
		BunchCrossing: bunchCrossing,
		Samples:       cp,
		NofSamples:    uint16(len(cp)),
	}, nil
}

// IsClusterSum reports whether c is in charge-sum mode.
func (c Cluster) IsClusterSum() bool {
	return c.Mode == format.ChargeSumMode
}

// Nof10BitWords returns the number of 10-bit words this cluster occupies on
// the wire: 1 for the nofSamples word, 1 for the timestamp, then either 2
// (charge sum) or len(Samples) (samples), matching
// SampaCluster::nof10BitWords in the original source.
func (c Cluster) Nof10BitWords() uint16 {
	n10 := uint16(2)
	if c.IsClusterSum() {
		n10 += 2
	} else {
		n10 += uint16(len(c.Samples))
	}
	return n10
}

// String renders the `ts-<ts>-q-<...>` tail of the `S<solar>-J<group>-
// DS<index>-ch-<channel>-ts-<ts>-q-<...>` line used by the spec §8
// test-vector scenarios: the charge sum, or the samples joined by '-'.
// The address and channel prefix is not part of the cluster and is left
// to the caller.
func (c Cluster) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ts-%d-q-", c.Timestamp)
	if c.IsClusterSum() {
		fmt.Fprintf(&sb, "%d", c.ChargeSum)
		return sb.String()
	}
	parts := make([]string, len(c.Samples))
	for i, s := range c.Samples {
		parts[i] = fmt.Sprintf("%d", s)
	}
	sb.WriteString(strings.Join(parts, "-"))
	return sb.String()
}
