package probes

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// udpPayload is the fixed datagram body. Small and constant: the value under
// test is the connection metadata, not the content.
var udpPayload = []byte("chaff-lab-noise")

// UDPSend emits one small datagram at the target. No response is expected
// or read.
func (p *Probes) UDPSend(ctx context.Context, host string, port int) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: p.timeout}
	outcome := "sent"
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		outcome = "failed"
	} else {
		conn.SetWriteDeadline(time.Now().Add(p.timeout))
		if _, err := conn.Write(udpPayload); err != nil {
			outcome = "failed"
			p.logger.Debug().Err(err).Str("addr", addr).Msg("UDP send attempt failed.")
		}
		conn.Close()
	}

	p.sink.Record(KindUDPSend, addr,
		fmt.Sprintf("payload_len=%d outcome=%s", len(udpPayload), outcome))
}
