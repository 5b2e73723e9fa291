package dispatch

import (
	"testing"

	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/rdh"
	"github.com/stretchr/testify/require"
)

func TestSession_LatchesFirstToken(t *testing.T) {
	s := NewSession()
	h := rdh.New()
	h.LinkId = 15
	h.FeeId = 0x1C8

	tok, err := s.Resolve(h)
	require.NoError(t, err)
	require.Equal(t, format.UserLogic, tok.Format)
	require.True(t, tok.ChargeSumMode)

	got, ok := s.Token()
	require.True(t, ok)
	require.Equal(t, tok, got)
}

func TestSession_RejectsContradictingRdh(t *testing.T) {
	s := NewSession()
	h1 := rdh.New()
	h1.LinkId = 15
	_, err := s.Resolve(h1)
	require.NoError(t, err)

	h2 := rdh.New()
	h2.LinkId = 3
	_, err = s.Resolve(h2)
	require.Error(t, err)
}

func TestSession_BareFormatDispatch(t *testing.T) {
	s := NewSession()
	h := rdh.New()
	h.LinkId = 3
	h.FeeId = 0x0C8

	tok, err := s.Resolve(h)
	require.NoError(t, err)
	require.Equal(t, format.Bare, tok.Format)
	require.False(t, tok.ChargeSumMode)
}
