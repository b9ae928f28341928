//go:build !linux

package probes

import (
	"context"
	"net"
	"strconv"
)

// Raw-socket SYN probing is only wired up on Linux.
func rawSocketAvailable() bool {
	return false
}

// SYNProbe on non-Linux platforms records the skip and does nothing else.
func (p *Probes) SYNProbe(ctx context.Context, host string, port int) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	p.sink.Record(KindSYNProbe, addr, "outcome=skipped reason=unsupported_platform")
}
