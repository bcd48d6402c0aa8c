package logging

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsToInfoWhenUnset(t *testing.T) {
	os.Unsetenv("RECON_LOG")
	log := New()
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNew_HonorsReconLogEnv(t *testing.T) {
	os.Setenv("RECON_LOG", "debug")
	defer os.Unsetenv("RECON_LOG")

	log := New()
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNew_FallsBackOnUnrecognizedLevel(t *testing.T) {
	os.Setenv("RECON_LOG", "not-a-level")
	defer os.Unsetenv("RECON_LOG")

	log := New()
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
