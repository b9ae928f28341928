package probes

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// TCPConnect attempts one short-lived TCP connection and closes it
// immediately on success.
func (p *Probes) TCPConnect(ctx context.Context, host string, port int) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: p.timeout}
	outcome := "connected"
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		outcome = "failed"
		p.logger.Debug().Err(err).Str("addr", addr).Msg("TCP connect attempt failed.")
	} else {
		conn.Close()
	}

	p.sink.Record(KindTCPConnect, addr, fmt.Sprintf("outcome=%s", outcome))
}
