package rdh

import (
	"testing"

	"github.com/aphecetche/mchraw/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEncoder_PaginationRoundTripAt128BytePages(t *testing.T) {
	cfg, err := config.New(config.WithPageSize(128), config.WithPaddingByte(0x00))
	require.NoError(t, err)
	enc := NewEncoder(cfg)

	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	buf, err := enc.EncodeBlock(DataBlock{Orbit: 0, BC: 0, FeeId: 968, Payload: payload})
	require.NoError(t, err)
	require.Len(t, buf, 256)

	var pages []RDH
	var payloads [][]byte
	dec := NewDecoder(cfg, nil)
	require.NoError(t, dec.Decode(buf, func(h RDH, p []byte) {
		pages = append(pages, h)
		cp := append([]byte(nil), p...)
		payloads = append(payloads, cp)
	}))

	require.Len(t, pages, 2)

	require.EqualValues(t, 80, pages[0].MemorySize)
	require.EqualValues(t, 0, pages[0].PageCounter)
	require.EqualValues(t, 0, pages[0].StopBit)
	require.Equal(t, payload, payloads[0])

	require.EqualValues(t, 64, pages[1].MemorySize)
	require.EqualValues(t, 1, pages[1].PageCounter)
	require.EqualValues(t, 1, pages[1].StopBit)
	require.Empty(t, payloads[1])

	for _, i := range []int{0, 1} {
		pageStart := i * 128
		tail := buf[pageStart+int(pages[i].MemorySize) : pageStart+128]
		for _, b := range tail {
			require.EqualValues(t, 0x00, b)
		}
	}
}

func TestDecoder_DetectsOrbitJump(t *testing.T) {
	cfg, err := config.New(config.WithPageSize(128))
	require.NoError(t, err)
	enc := NewEncoder(cfg)

	buf1, err := enc.EncodeBlock(DataBlock{Orbit: 100, FeeId: 1})
	require.NoError(t, err)
	buf2, err := enc.EncodeBlock(DataBlock{Orbit: 105, FeeId: 1})
	require.NoError(t, err)

	var jumps int
	dec := NewDecoder(cfg, func(feeId uint16, from, to uint32) { jumps++ })
	require.NoError(t, dec.Decode(buf1, func(RDH, []byte) {}))
	require.NoError(t, dec.Decode(buf2, func(RDH, []byte) {}))

	require.Equal(t, 1, jumps)
	require.EqualValues(t, 1, dec.Stats().NofOrbitJumps)
}

func TestDecoder_RejectsTruncatedBuffer(t *testing.T) {
	dec := NewDecoder(config.Config{PageSize: 128}, nil)
	err := dec.Decode(make([]byte, 10), func(RDH, []byte) {})
	require.Error(t, err)
}

func TestEncoder_RejectsPageSizeTooSmallForPayload(t *testing.T) {
	enc := NewEncoder(config.Config{PageSize: Size})
	_, err := enc.EncodeBlock(DataBlock{Payload: []byte{1}})
	require.Error(t, err)
}
