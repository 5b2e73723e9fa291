// Package dispatch implements the format/mode selection of §4.8: on the
// first valid RDH of a session, pick the Bare/UserLogic decoder
// specialization and the sample/charge-sum mode, then hold the embedding
// to that choice for the rest of the session.
package dispatch

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/format"
	"github.com/aphecetche/mchraw/rdh"
)

// Token is the resolved (format, mode) pair a session commits to on its
// first RDH.
type Token struct {
	Format        format.Format
	ChargeSumMode bool
}

func tokenOf(h rdh.RDH) Token {
	f := format.Bare
	if h.LinkId == format.UserLogicRdhLinkId {
		f = format.UserLogic
	}
	_, chargeSumMode := rdh.DecodeFeeId(h.FeeId)
	return Token{Format: f, ChargeSumMode: chargeSumMode}
}

// Session latches the dispatch token from the first RDH it sees and
// rejects any later RDH that contradicts it.
type Session struct {
	token *Token
}

// NewSession returns a Session with no token latched yet.
func NewSession() *Session { return &Session{} }

// Resolve latches h's token on the first call and validates every
// subsequent call against it, returning ErrFormatMismatch on a
// contradiction.
func (s *Session) Resolve(h rdh.RDH) (Token, error) {
	t := tokenOf(h)
	if s.token == nil {
		s.token = &t
		return t, nil
	}
	if *s.token != t {
		return Token{}, fmt.Errorf("%w: got format=%s chargeSum=%v, session is format=%s chargeSum=%v",
			errs.ErrFormatMismatch, t.Format, t.ChargeSumMode, s.token.Format, s.token.ChargeSumMode)
	}
	return *s.token, nil
}

// Token returns the latched token, or the zero Token and false if no RDH
// has been resolved yet.
func (s *Session) Token() (Token, bool) {
	if s.token == nil {
		return Token{}, false
	}
	return *s.token, true
}
