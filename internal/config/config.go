// Package config holds the enumerated encoder/decoder configuration of
// §6.3, built with the same functional-options pattern as
// internal/options.
package config

import (
	"fmt"

	"github.com/aphecetche/mchraw/errs"
	"github.com/aphecetche/mchraw/internal/options"
)

// RdhSize is the fixed size in bytes of one RDH v4.
const RdhSize = 64

const (
	// DefaultPageSize is the default RDH frame size in bytes.
	DefaultPageSize = 8192
	// DefaultPaddingByte fills short pages.
	DefaultPaddingByte byte = 0x42
	// DefaultMaxNofCRUs dimensions the CRU-decoder array.
	DefaultMaxNofCRUs = 33
)

// Config is the resolved configuration for one encoder or decoder session.
type Config struct {
	PageSize      int
	PaddingByte   byte
	ForceNoPhase  bool
	ChargeSumMode bool
	MaxNofCRUs    int
}

func defaults() Config {
	return Config{
		PageSize:    DefaultPageSize,
		PaddingByte: DefaultPaddingByte,
		MaxNofCRUs:  DefaultMaxNofCRUs,
	}
}

// Option configures a Config at construction time.
type Option = options.Option[*Config]

// WithPageSize sets the RDH frame size. It must be at least RdhSize.
func WithPageSize(n int) Option {
	return options.New[*Config](func(c *Config) error {
		if n < RdhSize {
			return fmt.Errorf("%w: pageSize=%d must be >= %d", errs.ErrBadArgument, n, RdhSize)
		}
		c.PageSize = n
		return nil
	})
}

// WithPaddingByte sets the fill byte used for short pages.
func WithPaddingByte(b byte) Option {
	return options.NoError[*Config](func(c *Config) { c.PaddingByte = b })
}

// WithForceNoPhase disables the per-e-link random start-phase, for tests
// that need deterministic sync alignment.
func WithForceNoPhase(v bool) Option {
	return options.NoError[*Config](func(c *Config) { c.ForceNoPhase = v })
}

// WithChargeSumMode sets the encoder-side cluster mode.
func WithChargeSumMode(v bool) Option {
	return options.NoError[*Config](func(c *Config) { c.ChargeSumMode = v })
}

// WithMaxNofCRUs sets the dimension of the CRU-decoder array. It must be
// positive.
func WithMaxNofCRUs(n int) Option {
	return options.New[*Config](func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: maxNofCRUs=%d must be positive", errs.ErrBadArgument, n)
		}
		c.MaxNofCRUs = n
		return nil
	})
}

// New resolves a Config from its defaults plus the given options, applied
// in order.
func New(opts ...Option) (Config, error) {
	c := defaults()
	if err := options.Apply(&c, opts...); err != nil {
		return Config{}, err
	}
	return c, nil
}
