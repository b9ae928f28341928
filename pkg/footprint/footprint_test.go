package footprint

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSamplerLogsOwnProcess(t *testing.T) {
	s, err := NewSampler(zerolog.Nop())
	assert.NoError(t, err)

	assert.NotPanics(t, func() {
		s.Log()
		s.Log()
	})
}
