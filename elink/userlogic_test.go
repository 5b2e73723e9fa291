package elink

import (
	"testing"

	"github.com/aphecetche/mchraw/sampa"
	"github.com/stretchr/testify/require"
)

func TestUserLogicRoundTrip_CarryOverToSecondWord(t *testing.T) {
	enc := NewUserLogicEncoder(false)
	c, err := sampa.NewSampleCluster(345, 0, []uint16{123, 456, 789, 901, 902})
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(63, []sampa.Cluster{c}))

	require.Greater(t, len(enc.Payloads()), 1, "expected the cluster to span more than one 50-bit word")

	var got []sampa.Cluster
	var gotChannels []uint8
	dec := NewUserLogicDecoder(false, func(channel uint8, cluster sampa.Cluster) {
		gotChannels = append(gotChannels, channel)
		got = append(got, cluster)
	}, nil)

	for _, p := range enc.Payloads() {
		dec.AppendPayload(p)
	}

	require.Len(t, got, 1)
	require.EqualValues(t, 63, gotChannels[0])
	require.Equal(t, "ts-345-q-123-456-789-901-902", got[0].String())
}

func TestUserLogicRoundTrip_ChargeSumCluster(t *testing.T) {
	enc := NewUserLogicEncoder(true)
	c, err := sampa.NewChargeSumCluster(345, 0, 123456, 1)
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(63, []sampa.Cluster{c}))

	var got []sampa.Cluster
	dec := NewUserLogicDecoder(true, func(channel uint8, cluster sampa.Cluster) {
		got = append(got, cluster)
	}, nil)

	for _, p := range enc.Payloads() {
		dec.AppendPayload(p)
	}

	require.Len(t, got, 1)
	require.Equal(t, "ts-345-q-123456", got[0].String())
	require.EqualValues(t, 1, got[0].NofSamples)
}

// TestUserLogicRoundTrip_ChargeSumClusterRetainsNofSamples guards against
// the nofSamples metadata word being hardwired instead of carrying the
// caller's actual value through to the decoded cluster.
func TestUserLogicRoundTrip_ChargeSumClusterRetainsNofSamples(t *testing.T) {
	enc := NewUserLogicEncoder(true)
	c, err := sampa.NewChargeSumCluster(345, 0, 123456, 17)
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(63, []sampa.Cluster{c}))

	var got []sampa.Cluster
	dec := NewUserLogicDecoder(true, func(channel uint8, cluster sampa.Cluster) {
		got = append(got, cluster)
	}, nil)

	for _, p := range enc.Payloads() {
		dec.AppendPayload(p)
	}

	require.Len(t, got, 1)
	require.Equal(t, "ts-345-q-123456", got[0].String())
	require.EqualValues(t, 17, got[0].NofSamples)
}

func TestUserLogicRoundTrip_TwoChannelsTwoClustersEach(t *testing.T) {
	enc := NewUserLogicEncoder(false)
	c1, err := sampa.NewSampleCluster(345, 0, []uint16{123, 456, 789, 901, 902})
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(63, []sampa.Cluster{c1}))

	c2, err := sampa.NewSampleCluster(346, 0, []uint16{1001, 1002, 1003, 1004, 1005, 1006, 1007})
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(47, []sampa.Cluster{c2}))

	var got []string
	dec := NewUserLogicDecoder(false, func(channel uint8, cluster sampa.Cluster) {
		got = append(got, cluster.String())
	}, nil)

	for _, p := range enc.Payloads() {
		dec.AppendPayload(p)
	}

	require.Equal(t, []string{
		"ts-345-q-123-456-789-901-902",
		"ts-346-q-1001-1002-1003-1004-1005-1006-1007",
	}, got)
}

func TestUserLogicDecoder_ResyncsOnSyncWord(t *testing.T) {
	var got []sampa.Cluster
	dec := NewUserLogicDecoder(false, func(channel uint8, cluster sampa.Cluster) {
		got = append(got, cluster)
	}, nil)

	dec.AppendPayload(0xDEADBEEF)
	require.Empty(t, got)

	enc := NewUserLogicEncoder(false)
	c, _ := sampa.NewSampleCluster(1, 0, []uint16{7})
	require.NoError(t, enc.AddChannelData(0, []sampa.Cluster{c}))
	for _, p := range enc.Payloads() {
		dec.AppendPayload(p)
	}

	require.Len(t, got, 1)
	require.Equal(t, "ts-1-q-7", got[0].String())
}
