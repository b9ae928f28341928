// Package scheduler drives the traffic-pattern engine: per iteration it
// builds a candidate set of synthetic domains, dispatches a configured
// number of DNS actions with probabilistic beacon and NXDOMAIN bursts, runs
// one probe pass against every target host, then sleeps a jittered interval
// before the next iteration.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lucid-vigil/chaff/pkg/choice"
	"github.com/lucid-vigil/chaff/pkg/config"
	"github.com/lucid-vigil/chaff/pkg/dga"
	"github.com/lucid-vigil/chaff/pkg/probes"
	"github.com/rs/zerolog"
)

// candidateWeight is the probability a DNS action targets the iteration's
// candidate list rather than a fresh random composite.
const candidateWeight = 0.6

// FootprintLogger is the slice of the footprint sampler the scheduler needs.
type FootprintLogger interface {
	Log()
}

// Stats is a point-in-time snapshot of the run, served by the status API.
type Stats struct {
	Iterations int64 `json:"iterations"`
	Actions    int64 `json:"actions"`
	SYNCapable bool  `json:"syn_capable"`
}

// Scheduler owns the iteration loop. All random draws happen on the loop
// goroutine; values handed to the per-target dispatch goroutines are chosen
// before the goroutines start.
type Scheduler struct {
	cfg       *config.RunConfig
	prober    probes.Prober
	gen       *dga.Generator
	r         *rand.Rand
	logger    zerolog.Logger
	footprint FootprintLogger

	iterations atomic.Int64
	actions    atomic.Int64
}

// New assembles a Scheduler. The config must already be validated.
func New(cfg *config.RunConfig, prober probes.Prober, gen *dga.Generator, r *rand.Rand, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		prober: prober,
		gen:    gen,
		r:      r,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// SetFootprint attaches an optional footprint sampler, logged every
// FootprintEvery iterations.
func (s *Scheduler) SetFootprint(f FootprintLogger) {
	s.footprint = f
}

// Stats returns a snapshot of the run counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Iterations: s.iterations.Load(),
		Actions:    s.actions.Load(),
		SYNCapable: s.prober.SYNCapable(),
	}
}

// Run executes iterations until the context is cancelled or the configured
// cycle bound is reached. A cancellation observed during a sleep or between
// actions abandons the remaining work immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Int("queries_per_iteration", s.cfg.QueriesPerIteration).
		Float64("beacon_prob", s.cfg.BeaconProb).
		Int("max_cycles", s.cfg.MaxCycles).
		Msg("Scheduler starting.")

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			break
		}

		s.RunIteration(ctx)
		s.iterations.Add(1)

		if s.footprint != nil && s.cfg.FootprintEvery > 0 && cycle%s.cfg.FootprintEvery == 0 {
			s.footprint.Log()
		}

		if s.cfg.MaxCycles > 0 && cycle >= s.cfg.MaxCycles {
			s.logger.Info().Int("cycles", cycle).Msg("Cycle bound reached.")
			break
		}

		if !s.sleepBetweenIterations(ctx) {
			break
		}
	}

	s.logger.Info().
		Int64("iterations", s.iterations.Load()).
		Int64("actions", s.actions.Load()).
		Msg("Scheduler stopped.")
}

// RunIteration performs one BuildCandidates + DispatchActions pass.
func (s *Scheduler) RunIteration(ctx context.Context) {
	candidates := s.buildCandidates()
	s.dispatchDNS(ctx, candidates)
	s.dispatchHostPass(ctx)
}

// buildCandidates assembles the iteration's fixed-size candidate list: two
// plain pool domains, two random composites, and one of each suspicious
// shape.
func (s *Scheduler) buildCandidates() []dga.GeneratedDomain {
	candidates := make([]dga.GeneratedDomain, 0, 8)
	for i := 0; i < 2; i++ {
		parent := choice.Pick(s.r, s.cfg.ValidDomains)
		candidates = append(candidates, dga.GeneratedDomain{Name: parent, Strategy: dga.StrategyBenignNoise})
	}
	for i := 0; i < 2; i++ {
		candidates = append(candidates, s.gen.RandomLabel())
	}
	candidates = append(candidates,
		s.gen.OversizedLabel(),
		s.gen.ManyLabels(),
		s.gen.NumericOnly(),
		s.gen.SingleCharChain(),
	)
	return candidates
}

// dispatchDNS emits the iteration's DNS actions. At most one beacon burst
// fires per iteration, regardless of how often the probability hits; without
// that cap a high beacon probability would multiply the iteration's volume
// instead of adding one periodic-looking burst to it.
func (s *Scheduler) dispatchDNS(ctx context.Context, candidates []dga.GeneratedDomain) {
	beaconFired := false

	for i := 0; i < s.cfg.QueriesPerIteration; i++ {
		if ctx.Err() != nil {
			return
		}

		server := choice.Pick(s.r, s.cfg.DNSServers)

		var name string
		if choice.Chance(s.r, candidateWeight) {
			name = choice.Pick(s.r, candidates).Name
		} else {
			name = s.gen.RandomLabel().Name
		}

		qtype := choice.Pick(s.r, s.cfg.QueryTypes)

		if isTextType(qtype) && choice.Chance(s.r, s.cfg.TXTPayloadProb) {
			s.prober.DNSPayload(server, name, s.cfg.LargePayloadSize)
		} else {
			s.prober.DNSQuery(ctx, server, name, qtype)
		}
		s.actions.Add(1)

		if !beaconFired && choice.Chance(s.r, s.cfg.BeaconProb) {
			beaconFired = true
			s.beaconBurst(ctx, name, qtype)
		}

		if choice.Chance(s.r, s.cfg.NXDomainBurstProb) {
			s.nxdomainBurst(ctx)
		}

		s.microDelay(ctx)
	}
}

// beaconBurst repeats the just-chosen query 2-4 times at a fixed short
// interval against freshly selected servers, imitating a C2 check-in.
func (s *Scheduler) beaconBurst(ctx context.Context, name, qtype string) {
	size := choice.IntBetween(s.r, 2, 4)
	s.logger.Debug().Str("name", name).Int("size", size).Msg("Beacon burst triggered.")

	for i := 0; i < size; i++ {
		if ctx.Err() != nil {
			return
		}
		server := choice.Pick(s.r, s.cfg.DNSServers)
		s.prober.DNSQuery(ctx, server, name, qtype)
		s.actions.Add(1)

		if i < size-1 && !sleepCtx(ctx, s.cfg.BeaconInterval()) {
			return
		}
	}
}

// nxdomainBurst fires a rapid run of fresh unique random names against
// random servers, imitating DGA resolution-failure churn.
func (s *Scheduler) nxdomainBurst(ctx context.Context) {
	size := s.cfg.NXDomainBurstSize
	s.logger.Debug().Int("size", size).Msg("NXDOMAIN burst triggered.")

	seen := make(map[string]struct{}, size)
	for i := 0; i < size; i++ {
		if ctx.Err() != nil {
			return
		}

		name := s.gen.RandomLabel().Name
		for attempt := 0; attempt < 3; attempt++ {
			if _, dup := seen[name]; !dup {
				break
			}
			name = s.gen.RandomLabel().Name
		}
		seen[name] = struct{}{}

		server := choice.Pick(s.r, s.cfg.DNSServers)
		s.prober.DNSQuery(ctx, server, name, "A")
		s.actions.Add(1)
	}
}

// dispatchHostPass runs the non-DNS probes: per target host an HTTP beacon
// of 1-2 requests, one TCP connect, one UDP send, and one SYN probe when the
// capability is present. One goroutine per target keeps at most one probe in
// flight per host, bounding total concurrency at the size of the target pool.
func (s *Scheduler) dispatchHostPass(ctx context.Context) {
	type hostPlan struct {
		host      string
		httpPorts []int
		paths     []string
		agents    []string
		tcpPort   int
		udpPort   int
		synPort   int
	}

	// All random draws happen here, before any goroutine starts; the
	// pseudo-random source is not shared across goroutines.
	plans := make([]hostPlan, 0, len(s.cfg.TargetHosts))
	for _, host := range s.cfg.TargetHosts {
		plan := hostPlan{
			host:    host,
			tcpPort: choice.Pick(s.r, s.cfg.TCPPorts),
			udpPort: choice.Pick(s.r, s.cfg.UDPPorts),
			synPort: choice.Pick(s.r, s.cfg.TCPPorts),
		}
		requests := choice.IntBetween(s.r, 1, 2)
		for i := 0; i < requests; i++ {
			plan.httpPorts = append(plan.httpPorts, choice.Pick(s.r, s.cfg.TCPPorts))
			plan.paths = append(plan.paths, s.randomPath())
			plan.agents = append(plan.agents, choice.Pick(s.r, s.cfg.UserAgents))
		}
		plans = append(plans, plan)
	}

	synCapable := s.prober.SYNCapable()

	var wg sync.WaitGroup
	for _, plan := range plans {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(plan hostPlan) {
			defer wg.Done()
			for i := range plan.httpPorts {
				s.prober.HTTPBeacon(ctx, plan.host, plan.httpPorts[i], plan.paths[i], plan.agents[i])
				s.actions.Add(1)
			}
			s.prober.TCPConnect(ctx, plan.host, plan.tcpPort)
			s.actions.Add(1)
			s.prober.UDPSend(ctx, plan.host, plan.udpPort)
			s.actions.Add(1)
			if synCapable {
				s.prober.SYNProbe(ctx, plan.host, plan.synPort)
				s.actions.Add(1)
			}
		}(plan)
	}
	wg.Wait()
}

// sleepBetweenIterations blocks for a uniformly random duration in the
// configured window. Returns false if the context was cancelled first.
func (s *Scheduler) sleepBetweenIterations(ctx context.Context) bool {
	d := choice.DurationBetween(s.r, s.cfg.SleepMin(), s.cfg.SleepMax())
	s.logger.Debug().Dur("sleep", d).Msg("Sleeping before next iteration.")
	return sleepCtx(ctx, d)
}

// microDelay applies the per-action pause that keeps intra-iteration
// traffic from looking machine-gunned.
func (s *Scheduler) microDelay(ctx context.Context) {
	if s.cfg.ActionDelayMaxMS <= 0 {
		return
	}
	sleepCtx(ctx, choice.DurationBetween(s.r, 0, s.cfg.ActionDelayMax()))
}

// sleepCtx sleeps for d or until ctx is done; reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

const pathChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomPath yields a short random URL segment for HTTP beacons.
func (s *Scheduler) randomPath() string {
	n := choice.IntBetween(s.r, 5, 12)
	b := make([]byte, n)
	for i := range b {
		b[i] = pathChars[s.r.Intn(len(pathChars))]
	}
	return string(b)
}

// isTextType reports whether a query type carries free-form text and is
// eligible for large-payload substitution.
func isTextType(qtype string) bool {
	switch qtype {
	case "TXT", "txt", "SPF", "spf":
		return true
	}
	return false
}
