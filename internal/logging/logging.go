// Package logging sets up the structured zerolog logger shared across the
// engine, leveled via the RECON_LOG environment variable.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to stderr, leveled by RECON_LOG
// (debug, info, warn, error; defaults to info when unset or unrecognized).
// This is the RUST_LOG-style filter convention named in the output
// contract, adapted to zerolog's level model rather than its scoped
// per-module filter syntax.
func New() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("RECON_LOG"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
