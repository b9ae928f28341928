// Package footprint samples the generator's own resource usage. The tool is
// supposed to be a quiet lab tenant; periodic CPU/RSS lines in the
// operational log make that verifiable.
package footprint

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// Sampler reads this process's CPU and memory usage via gopsutil.
type Sampler struct {
	proc   *process.Process
	logger zerolog.Logger
}

// NewSampler binds a Sampler to the current process.
func NewSampler(logger zerolog.Logger) (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{
		proc:   proc,
		logger: logger.With().Str("component", "footprint").Logger(),
	}, nil
}

// Log emits one footprint sample. Read failures are logged and otherwise
// ignored; resource sampling must never disturb the run.
func (s *Sampler) Log() {
	cpu, err := s.proc.CPUPercent()
	if err != nil {
		s.logger.Debug().Err(err).Msg("CPU sample failed.")
		return
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		s.logger.Debug().Err(err).Msg("Memory sample failed.")
		return
	}
	s.logger.Info().
		Float64("cpu_percent", cpu).
		Uint64("rss_bytes", mem.RSS).
		Msg("Generator footprint sample.")
}
