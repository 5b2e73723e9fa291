package rdh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRDH_BytesParseRoundTrip(t *testing.T) {
	h := New()
	h.FeeId = 968
	h.LinkId = 15
	h.OffsetToNext = 128
	h.MemorySize = 80
	h.CruId = 200
	h.Endpoint = 1
	h.TriggerOrbit = 12345
	h.HeartbeatOrbit = 12345
	h.TriggerBC = 42
	h.HeartbeatBC = 42
	h.TriggerType = TriggerTypeHB | TriggerTypeTF
	h.PacketCounter = 7
	h.PageCounter = 3
	h.StopBit = 1

	b := h.Bytes()
	require.Len(t, b, Size)

	var got RDH
	require.NoError(t, got.Parse(b))
	require.Equal(t, h, got)
}

func TestRDH_ParseRejectsWrongSize(t *testing.T) {
	var h RDH
	require.Error(t, h.Parse(make([]byte, 10)))
}

func TestRDH_ParseRejectsBadVersion(t *testing.T) {
	h := New()
	b := h.Bytes()
	b[0] = 3
	var got RDH
	require.Error(t, got.Parse(b))
}

func TestDecodeFeeId(t *testing.T) {
	cruId, chargeSum := DecodeFeeId(0x1C8)
	require.EqualValues(t, 0xC8, cruId)
	require.True(t, chargeSum)

	cruId, chargeSum = DecodeFeeId(0x0C8)
	require.EqualValues(t, 0xC8, cruId)
	require.False(t, chargeSum)
}

func TestRDH_IsValid(t *testing.T) {
	h := New()
	require.True(t, h.IsValid())
	h.Version = 3
	require.False(t, h.IsValid())
}
