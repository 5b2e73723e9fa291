package gbt

import (
	"testing"

	"github.com/aphecetche/mchraw/sampa"
	"github.com/stretchr/testify/require"
)

func TestBareMuxDemux_RoundTrip(t *testing.T) {
	mux := NewBareMux(false)

	enc3, err := mux.Encoder(3)
	require.NoError(t, err)
	c3, err := sampa.NewSampleCluster(10, 0, []uint16{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, enc3.AddChannelData(5, []sampa.Cluster{c3}))

	enc17, err := mux.Encoder(17)
	require.NoError(t, err)
	c17, err := sampa.NewSampleCluster(20, 0, []uint16{9})
	require.NoError(t, err)
	require.NoError(t, enc17.AddChannelData(40, []sampa.Cluster{c17}))

	words, err := mux.Words()
	require.NoError(t, err)
	require.NotEmpty(t, words)

	type got struct {
		elink, channel uint8
		cluster        string
	}
	var results []got
	demux := NewBareDemux(false, func(elinkIndex, channel uint8, cluster sampa.Cluster) {
		results = append(results, got{elinkIndex, channel, cluster.String()})
	}, nil)

	for _, w := range words {
		demux.AppendWord(w[0], w[1])
	}

	require.Len(t, results, 2)
	byElink := map[uint8]got{}
	for _, r := range results {
		byElink[r.elink] = r
	}
	require.Equal(t, uint8(5), byElink[3].channel)
	require.Equal(t, "ts-10-q-1-2-3", byElink[3].cluster)
	require.Equal(t, uint8(40), byElink[17].channel)
	require.Equal(t, "ts-20-q-9", byElink[17].cluster)
}

func TestBareMux_RejectsOutOfRangeElink(t *testing.T) {
	mux := NewBareMux(false)
	_, err := mux.Encoder(40)
	require.Error(t, err)
}

// TestBareMuxDemux_HighElinkIndices exercises e-links 32-39, whose two
// data bits per GBT word land at bit positions 64-79, i.e. entirely
// within the high uint64 of the (low, high) pair.
func TestBareMuxDemux_HighElinkIndices(t *testing.T) {
	mux := NewBareMux(true)

	enc32, err := mux.Encoder(32)
	require.NoError(t, err)
	c32, err := sampa.NewChargeSumCluster(7, 0, 12345, 1)
	require.NoError(t, err)
	require.NoError(t, enc32.AddChannelData(1, []sampa.Cluster{c32}))

	enc39, err := mux.Encoder(39)
	require.NoError(t, err)
	c39, err := sampa.NewChargeSumCluster(8, 0, 54321, 1)
	require.NoError(t, err)
	require.NoError(t, enc39.AddChannelData(63, []sampa.Cluster{c39}))

	words, err := mux.Words()
	require.NoError(t, err)
	require.NotEmpty(t, words)

	type got struct {
		elink, channel uint8
		cluster        string
	}
	var results []got
	demux := NewBareDemux(true, func(elinkIndex, channel uint8, cluster sampa.Cluster) {
		results = append(results, got{elinkIndex, channel, cluster.String()})
	}, nil)

	for _, w := range words {
		demux.AppendWord(w[0], w[1])
	}

	require.Len(t, results, 2)
	byElink := map[uint8]got{}
	for _, r := range results {
		byElink[r.elink] = r
	}
	require.Equal(t, uint8(1), byElink[32].channel)
	require.Equal(t, "ts-7-q-12345", byElink[32].cluster)
	require.Equal(t, uint8(63), byElink[39].channel)
	require.Equal(t, "ts-8-q-54321", byElink[39].cluster)
}
