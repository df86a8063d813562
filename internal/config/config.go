// Package config holds the small set of tunables the core reads at startup.
// It replaces the constant blocks the circuit packages used individually
// (circuits/poi/config.go's pattern) with a single loadable, overridable
// struct, since the core is no longer a single fixed circuit.
package config

import "time"

// Config carries every enumerated option from the external-interfaces
// surface that the core itself consults.
type Config struct {
	CircuitName          string
	CircuitsPath         string
	ProofExpiry          time.Duration
	MaxCredentialsPerSet int
	MaxMerkleDepth       int
}

// Option mutates a Config during construction.
type Option func(*Config)

// Default returns the configuration used when no options are supplied.
func Default() Config {
	return Config{
		CircuitName:          "membership",
		CircuitsPath:         "./circuits/artifacts",
		ProofExpiry:          24 * time.Hour,
		MaxCredentialsPerSet: 1024,
		MaxMerkleDepth:       20,
	}
}

// New builds a Config from Default() with opts applied in order.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithCircuit(name, path string) Option {
	return func(c *Config) {
		c.CircuitName = name
		c.CircuitsPath = path
	}
}

func WithProofExpiry(d time.Duration) Option {
	return func(c *Config) { c.ProofExpiry = d }
}

func WithMaxCredentialsPerSet(n int) Option {
	return func(c *Config) { c.MaxCredentialsPerSet = n }
}

func WithMaxMerkleDepth(n int) Option {
	return func(c *Config) { c.MaxMerkleDepth = n }
}
