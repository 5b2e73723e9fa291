package bitstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitStream_AppendAndGet(t *testing.T) {
	bs := New()
	bs.AppendBit(true)
	bs.AppendBit(false)
	bs.AppendBit(true)

	require.Equal(t, 3, bs.Len())

	b0, err := bs.Get(0)
	require.NoError(t, err)
	require.True(t, b0)

	b1, err := bs.Get(1)
	require.NoError(t, err)
	require.False(t, b1)
}

func TestBitStream_AppendUnRoundTrip(t *testing.T) {
	bs := New()
	require.NoError(t, bs.AppendU10(0x3FF))
	require.NoError(t, bs.AppendU20(0xABCDE))
	require.NoError(t, bs.AppendU50(SyncWord))

	require.Equal(t, 80, bs.Len())

	v10, err := bs.RangeU64(0, 9)
	require.NoError(t, err)
	require.EqualValues(t, 0x3FF, v10)

	v20, err := bs.RangeU64(10, 29)
	require.NoError(t, err)
	require.EqualValues(t, 0xABCDE, v20)

	v50, err := bs.RangeU64(30, 79)
	require.NoError(t, err)
	require.EqualValues(t, SyncWord, v50)
}

func TestBitStream_AppendUnRejectsOversizedWidth(t *testing.T) {
	bs := New()
	err := bs.AppendUn(1, 65)
	require.Error(t, err)
}

func TestBitStream_GetOutOfRange(t *testing.T) {
	bs := New()
	bs.AppendBit(true)
	_, err := bs.Get(5)
	require.Error(t, err)
}

func TestBitStream_FillWithSyncPersistsCursor(t *testing.T) {
	bs := New()
	require.NoError(t, bs.FillWithSync(30))
	require.Equal(t, 30, bs.Len())

	require.NoError(t, bs.FillWithSync(100))
	require.Equal(t, 100, bs.Len())

	// Two consecutive calls must concatenate as one continuous sync
	// stream: bit i of the result equals bit (i mod 50) of SyncWord.
	for i := 0; i < 100; i++ {
		got, err := bs.Get(i)
		require.NoError(t, err)
		want := (SyncWord>>uint(i%SyncWordLen))&1 == 1
		require.Equalf(t, want, got, "bit %d", i)
	}
}

func TestBitStream_FillWithSyncRejectsShrink(t *testing.T) {
	bs := New()
	require.NoError(t, bs.FillWithSync(50))
	err := bs.FillWithSync(10)
	require.Error(t, err)
}

func TestBitStream_ClearResetsState(t *testing.T) {
	bs := New()
	require.NoError(t, bs.FillWithSync(60))
	bs.Clear()
	require.Equal(t, 0, bs.Len())

	// cursor resets too: a fresh FillWithSync must start at bit 0 of SyncWord.
	require.NoError(t, bs.FillWithSync(1))
	got, _ := bs.Get(0)
	require.Equal(t, SyncWord&1 == 1, got)
}

func TestBitStream_PruneFirst(t *testing.T) {
	bs := New()
	require.NoError(t, bs.AppendU10(0b1010101010))
	require.NoError(t, bs.AppendU10(0b0101010101))

	require.NoError(t, bs.PruneFirst(10))
	require.Equal(t, 10, bs.Len())

	v, err := bs.RangeU64(0, 9)
	require.NoError(t, err)
	require.EqualValues(t, 0b0101010101, v)
}

func TestBitStream_PruneFirstRejectsTooLarge(t *testing.T) {
	bs := New()
	bs.AppendBit(true)
	err := bs.PruneFirst(5)
	require.Error(t, err)
}

func TestBitStream_StringRendersMSBLeft(t *testing.T) {
	bs := New()
	bs.AppendBit(true)
	bs.AppendBit(false)
	bs.AppendBit(false)
	require.Equal(t, "001", bs.String())
}

func BenchmarkBitStream_AppendU10(b *testing.B) {
	bs := New()
	for b.Loop() {
		_ = bs.AppendU10(0x3FF)
	}
}
