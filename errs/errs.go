// Package errs holds the sentinel errors shared across the codec packages.
//
// Call sites wrap these with fmt.Errorf("%w: ...", ErrX, ...) so that
// errors.Is still matches while the message carries the offending values.
package errs

import "errors"

var (
	// ErrBadArgument is returned when an input violates a documented
	// precondition: a bit-width exceeded, a span size not a multiple of
	// the expected granularity, an e-link index out of range, an empty
	// cluster list, etc. The offending operation has no effect.
	ErrBadArgument = errors.New("bad argument")

	// ErrFormatMismatch is returned when a later RDH in a decoding
	// session contradicts the format or charge-sum mode chosen by the
	// dispatcher on the session's first valid RDH. Fatal for the session.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrRdhInvalid is returned when an RDH fails its version, size, or
	// memorySize<=pageSize checks. Decoding stops at that page; the rest
	// of the buffer is left unconsumed.
	ErrRdhInvalid = errors.New("invalid RDH")

	// ErrBadElecAddress is returned when a UserLogic word carries an
	// elinkIndex outside [0,39].
	ErrBadElecAddress = errors.New("bad electronic address")

	// ErrMissingMapping is returned by the mchraw Encoder and Decoder when
	// an elecmap lookup reports no entry for a key (the elecmap lookups
	// themselves return ok=false). It is a configuration error, not a data
	// error.
	ErrMissingMapping = errors.New("missing electronic mapping")
)
