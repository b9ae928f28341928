// Package probes implements the five narrow network operations the
// scheduler dispatches: DNS query, HTTP beacon, TCP connect, UDP send and a
// raw SYN probe. Every probe is a single timeout-bounded attempt against one
// target; the outcome is reported to the event log and network failures are
// swallowed at the probe boundary, never returned to the caller.
package probes

import (
	"context"
	"time"

	"github.com/lucid-vigil/chaff/pkg/eventlog"
	"github.com/rs/zerolog"
)

// Event kinds recorded in the event log, one per probe.
const (
	KindDNSQuery   = "dns_query"
	KindDNSPayload = "dns_payload"
	KindHTTPBeacon = "http_beacon"
	KindTCPConnect = "tcp_connect"
	KindUDPSend    = "udp_send"
	KindSYNProbe   = "syn_probe"
)

// Prober is the dispatch surface the scheduler drives. Implementations log
// each attempt themselves and never propagate network failures.
type Prober interface {
	DNSQuery(ctx context.Context, server, name, qtype string)
	DNSPayload(server, name string, size int)
	HTTPBeacon(ctx context.Context, host string, port int, path, userAgent string)
	TCPConnect(ctx context.Context, host string, port int)
	UDPSend(ctx context.Context, host string, port int)
	SYNProbe(ctx context.Context, host string, port int)
	SYNCapable() bool
}

// Probes is the production Prober backed by real network primitives.
type Probes struct {
	sink       eventlog.Sink
	logger     zerolog.Logger
	timeout    time.Duration
	dnssecProb float64
	synEnabled bool
}

// NewProbes builds the production probe set. The raw-socket capability is
// checked once here; without it the SYN probe silently degrades to a no-op.
func NewProbes(sink eventlog.Sink, logger zerolog.Logger, timeout time.Duration, dnssecProb float64) *Probes {
	p := &Probes{
		sink:       sink,
		logger:     logger.With().Str("component", "probes").Logger(),
		timeout:    timeout,
		dnssecProb: dnssecProb,
		synEnabled: rawSocketAvailable(),
	}
	if !p.synEnabled {
		p.logger.Info().Msg("Raw socket capability unavailable, SYN probe disabled.")
	}
	return p
}

// SYNCapable reports whether the SYN probe can emit raw packets.
func (p *Probes) SYNCapable() bool {
	return p.synEnabled
}
