package elecmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDsElecId_ElinkIndexRoundTrip(t *testing.T) {
	ds, err := NewDsElecId(12, 3, 2)
	require.NoError(t, err)
	require.EqualValues(t, 17, ds.ElinkIndex())

	back, err := DsElecIdFromElinkIndex(12, 17)
	require.NoError(t, err)
	require.Equal(t, ds, back)
}

func TestDsElecId_String(t *testing.T) {
	ds, err := NewDsElecId(0, 0, 2)
	require.NoError(t, err)
	require.Equal(t, "S0-J0-DS2", ds.String())
}

func TestNewDsElecId_RejectsOutOfRange(t *testing.T) {
	_, err := NewDsElecId(0, 8, 0)
	require.Error(t, err)

	_, err = NewDsElecId(0, 0, 5)
	require.Error(t, err)
}

func TestChargeSumModeAndCruId(t *testing.T) {
	require.EqualValues(t, 200, CruId(0x1C8))
	require.True(t, ChargeSumMode(0x1C8))
	require.False(t, ChargeSumMode(0x0C8))
}

func TestStaticMap_ReportsMissingOncePerKey(t *testing.T) {
	var reports []string
	m := NewStaticMap(func(key string) { reports = append(reports, key) })

	_, ok := m.SolarToFeeLink(42)
	require.False(t, ok)
	_, ok = m.SolarToFeeLink(42)
	require.False(t, ok)

	require.Len(t, reports, 1)
}

func TestStaticMap_ResolvesRegisteredMappings(t *testing.T) {
	m := NewStaticMap(nil)
	fee, err := NewFeeLinkId(968, 3)
	require.NoError(t, err)
	m.AddFeeLink(fee, 42)

	solarId, ok := m.FeeLinkToSolar(fee)
	require.True(t, ok)
	require.EqualValues(t, 42, solarId)

	back, ok := m.SolarToFeeLink(42)
	require.True(t, ok)
	require.Equal(t, fee, back)

	ds, err := NewDsElecId(42, 1, 1)
	require.NoError(t, err)
	m.AddElecToDet(ds, 100, 7)

	detElemId, dualSampaId, ok := m.ElecToDet(ds)
	require.True(t, ok)
	require.Equal(t, 100, detElemId)
	require.Equal(t, 7, dualSampaId)
}
