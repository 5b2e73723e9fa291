package gbt

import (
	"testing"

	"github.com/aphecetche/mchraw/sampa"
	"github.com/stretchr/testify/require"
)

func TestUserLogicMuxDemux_RoundTrip(t *testing.T) {
	mux := NewUserLogicMux(4, false)

	enc3, err := mux.Encoder(3)
	require.NoError(t, err)
	c3, err := sampa.NewSampleCluster(10, 0, []uint16{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, enc3.AddChannelData(5, []sampa.Cluster{c3}))

	words := mux.Words()
	require.NotEmpty(t, words)

	type got struct {
		elink, channel, link uint8
		cluster               string
	}
	var results []got
	demux := NewUserLogicDemux(false, func(elinkIndex, channel uint8, cluster sampa.Cluster) {
		results = append(results, got{elink: elinkIndex, channel: channel, cluster: cluster.String()})
	}, nil)

	for _, w := range words {
		linkIndex, err := demux.AppendWord(w)
		require.NoError(t, err)
		if len(results) > 0 {
			results[len(results)-1].link = linkIndex
		}
	}

	require.Len(t, results, 1)
	require.EqualValues(t, 3, results[0].elink)
	require.EqualValues(t, 5, results[0].channel)
	require.Equal(t, "ts-10-q-1-2-3", results[0].cluster)
}

func TestUserLogicDemux_SkipsFillerAndIdleWords(t *testing.T) {
	var calls int
	demux := NewUserLogicDemux(false, func(uint8, uint8, sampa.Cluster) { calls++ }, nil)

	_, err := demux.AppendWord(FillerWord)
	require.NoError(t, err)
	_, err = demux.AppendWord(IdleWord)
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestUserLogicDemux_RejectsOutOfRangeElinkIndex(t *testing.T) {
	demux := NewUserLogicDemux(false, nil, nil)
	bad := packUserLogicWord(0x1555540F00113, 0, 50, 0)
	_, err := demux.AppendWord(bad)
	require.Error(t, err)
}
