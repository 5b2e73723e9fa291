package mchraw

import (
	"fmt"
	"testing"

	"github.com/aphecetche/mchraw/elecmap"
	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/internal/config"
	"github.com/aphecetche/mchraw/sampa"
	"github.com/stretchr/testify/require"
)

func lineOf(ds elecmap.DsElecId, channel uint8, cluster sampa.Cluster) string {
	return fmt.Sprintf("%s-ch-%d-%s", ds, channel, cluster)
}

func newTestMap(t *testing.T) *elecmap.StaticMap {
	t.Helper()
	m := elecmap.NewStaticMap(nil)
	fl0, err := elecmap.NewFeeLinkId(712, 3)
	require.NoError(t, err)
	m.AddFeeLink(fl0, 0)
	fl1, err := elecmap.NewFeeLinkId(712, 7)
	require.NoError(t, err)
	m.AddFeeLink(fl1, 1)
	return m
}

func TestEncoderDecoder_BareRoundTrip_MinimumCluster(t *testing.T) {
	emap := newTestMap(t)

	enc, err := NewEncoder(format.Bare, emap, config.WithPageSize(8192))
	require.NoError(t, err)

	ds, err := elecmap.NewDsElecId(0, 0, 2)
	require.NoError(t, err)
	cluster, err := sampa.NewSampleCluster(345, 0, []uint16{123, 456})
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(ds, 63, []sampa.Cluster{cluster}))
	require.NoError(t, enc.StartHeartbeatFrame(0, 0))

	var buf []byte
	n, err := enc.MoveToBuffer(&buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	type got struct {
		line string
	}
	var results []got
	dec, err := NewDecoder(emap, nil)
	require.NoError(t, err)
	require.NoError(t, dec.Decode(buf, func(ds elecmap.DsElecId, channel uint8, cluster sampa.Cluster) {
		results = append(results, got{lineOf(ds, channel, cluster)})
	}))

	require.Len(t, results, 1)
	require.Equal(t, "S0-J0-DS2-ch-63-ts-345-q-123-456", results[0].line)
}

func TestEncoderDecoder_UserLogicRoundTrip_ChargeSumTwoChannels(t *testing.T) {
	emap := newTestMap(t)

	enc, err := NewEncoder(format.UserLogic, emap, config.WithChargeSumMode(true))
	require.NoError(t, err)

	ds, err := elecmap.NewDsElecId(0, 0, 2)
	require.NoError(t, err)

	c1a, err := sampa.NewChargeSumCluster(345, 0, 123456, 1)
	require.NoError(t, err)
	c1b, err := sampa.NewChargeSumCluster(346, 0, 789012, 1)
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(ds, 63, []sampa.Cluster{c1a, c1b}))

	c2a, err := sampa.NewChargeSumCluster(347, 0, 1357, 1)
	require.NoError(t, err)
	c2b, err := sampa.NewChargeSumCluster(348, 0, 791, 1)
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(ds, 47, []sampa.Cluster{c2a, c2b}))

	require.NoError(t, enc.StartHeartbeatFrame(0, 0))

	var buf []byte
	_, err = enc.MoveToBuffer(&buf)
	require.NoError(t, err)

	var lines []string
	dec, err := NewDecoder(emap, nil, config.WithChargeSumMode(true))
	require.NoError(t, err)
	require.NoError(t, dec.Decode(buf, func(ds elecmap.DsElecId, channel uint8, cluster sampa.Cluster) {
		lines = append(lines, lineOf(ds, channel, cluster))
	}))

	require.Equal(t, []string{
		"S0-J0-DS2-ch-63-ts-345-q-123456",
		"S0-J0-DS2-ch-63-ts-346-q-789012",
		"S0-J0-DS2-ch-47-ts-347-q-1357",
		"S0-J0-DS2-ch-47-ts-348-q-791",
	}, lines)

	stats, ok := dec.StatsFor(ds)
	require.True(t, ok)
	require.EqualValues(t, 1, stats.NofSync)
}

func TestDecoder_RejectsContradictingDispatchToken(t *testing.T) {
	emap := newTestMap(t)

	enc, err := NewEncoder(format.Bare, emap)
	require.NoError(t, err)
	ds, err := elecmap.NewDsElecId(0, 0, 2)
	require.NoError(t, err)
	c, err := sampa.NewSampleCluster(1, 0, []uint16{1})
	require.NoError(t, err)
	require.NoError(t, enc.AddChannelData(ds, 1, []sampa.Cluster{c}))
	require.NoError(t, enc.StartHeartbeatFrame(0, 0))
	var bareBuf []byte
	_, err = enc.MoveToBuffer(&bareBuf)
	require.NoError(t, err)

	ulEnc, err := NewEncoder(format.UserLogic, emap)
	require.NoError(t, err)
	ds1, err := elecmap.NewDsElecId(1, 0, 2)
	require.NoError(t, err)
	require.NoError(t, ulEnc.AddChannelData(ds1, 1, []sampa.Cluster{c}))
	require.NoError(t, ulEnc.StartHeartbeatFrame(1, 0))
	var ulBuf []byte
	_, err = ulEnc.MoveToBuffer(&ulBuf)
	require.NoError(t, err)

	dec, err := NewDecoder(emap, nil)
	require.NoError(t, err)
	require.NoError(t, dec.Decode(bareBuf, func(elecmap.DsElecId, uint8, sampa.Cluster) {}))
	err = dec.Decode(ulBuf, func(elecmap.DsElecId, uint8, sampa.Cluster) {})
	require.Error(t, err)
}

func TestEncoder_RejectsEmptyClusterList(t *testing.T) {
	emap := newTestMap(t)
	enc, err := NewEncoder(format.Bare, emap)
	require.NoError(t, err)
	ds, err := elecmap.NewDsElecId(0, 0, 2)
	require.NoError(t, err)
	err = enc.AddChannelData(ds, 1, nil)
	require.Error(t, err)
}

func TestDecoder_PageStatsTracksOrbitJumps(t *testing.T) {
	emap := newTestMap(t)
	enc, err := NewEncoder(format.Bare, emap)
	require.NoError(t, err)
	ds, err := elecmap.NewDsElecId(0, 0, 2)
	require.NoError(t, err)
	c, err := sampa.NewSampleCluster(1, 0, []uint16{1})
	require.NoError(t, err)

	var jumps int
	dec, err := NewDecoder(emap, func(feeId uint16, from, to uint32) { jumps++ })
	require.NoError(t, err)

	require.NoError(t, enc.AddChannelData(ds, 1, []sampa.Cluster{c}))
	require.NoError(t, enc.StartHeartbeatFrame(100, 0))
	var buf1 []byte
	_, err = enc.MoveToBuffer(&buf1)
	require.NoError(t, err)
	require.NoError(t, dec.Decode(buf1, func(elecmap.DsElecId, uint8, sampa.Cluster) {}))

	require.NoError(t, enc.AddChannelData(ds, 1, []sampa.Cluster{c}))
	require.NoError(t, enc.StartHeartbeatFrame(105, 0))
	var buf2 []byte
	_, err = enc.MoveToBuffer(&buf2)
	require.NoError(t, err)
	require.NoError(t, dec.Decode(buf2, func(elecmap.DsElecId, uint8, sampa.Cluster) {}))

	require.Equal(t, 1, jumps)
	require.EqualValues(t, 1, dec.PageStats().NofOrbitJumps)
}
