package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lucid-vigil/chaff/pkg/api"
	"github.com/lucid-vigil/chaff/pkg/config"
	"github.com/lucid-vigil/chaff/pkg/dga"
	"github.com/lucid-vigil/chaff/pkg/eventlog"
	"github.com/lucid-vigil/chaff/pkg/footprint"
	"github.com/lucid-vigil/chaff/pkg/logger"
	"github.com/lucid-vigil/chaff/pkg/probes"
	"github.com/lucid-vigil/chaff/pkg/scheduler"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load and validate configuration first; an invalid config must never
	// reach the scheduling loop.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.InitLogger(cfg.LogLevel)

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Msg("Chaff traffic generator starting...")

	sink, err := eventlog.NewFileSink(cfg.EventLogPath, runID, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open event log")
	}
	defer sink.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gen, err := dga.NewGenerator(rng, cfg.ValidDomains)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize domain generator")
	}

	prober := probes.NewProbes(sink, log.Logger, cfg.ProbeTimeout(), cfg.DNSSECProb)

	sched := scheduler.New(cfg, prober, gen, rng, log.Logger)
	if sampler, err := footprint.NewSampler(log.Logger); err == nil {
		sched.SetFootprint(sampler)
	} else {
		log.Warn().Err(err).Msg("Footprint sampling unavailable.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bound, _ := cfg.RunBound(); bound > 0 {
		ctx, cancel = context.WithTimeout(ctx, bound)
		defer cancel()
		log.Info().Dur("run_duration", bound).Msg("Run duration bound set.")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Msgf("Received signal: %s. Shutting down gracefully...", sig)
		cancel()
	}()

	if cfg.APIPort != "" {
		go api.StartAPIServer(cfg.APIPort, runID, sched.Stats)
	}

	sink.Record("lifecycle", "-", "run started")
	sched.Run(ctx)

	// The final line is guaranteed even when a signal cut the run short.
	stats := sched.Stats()
	sink.Record("lifecycle", "-", "run stopped")
	log.Info().
		Int64("iterations", stats.Iterations).
		Int64("actions", stats.Actions).
		Msg("Chaff traffic generator stopped.")
}
