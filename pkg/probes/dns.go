package probes

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// DNSQuery sends one query of the given type to the given server and
// discards the response. The DNSSEC-OK flag is set with a small configured
// probability. Only the fact of the attempt is logged.
func (p *Probes) DNSQuery(ctx context.Context, server, name, qtype string) {
	qt, ok := dns.StringToType[strings.ToUpper(qtype)]
	if !ok {
		qt = dns.TypeA
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qt)

	dnssec := rand.Float64() < p.dnssecProb
	if dnssec {
		m.SetEdns0(4096, true)
	}

	c := new(dns.Client)
	c.Timeout = p.timeout

	outcome := "sent"
	if _, _, err := c.ExchangeContext(ctx, m, net.JoinHostPort(server, "53")); err != nil {
		outcome = "failed"
		p.logger.Debug().Err(err).Str("server", server).Str("name", name).Msg("DNS query attempt failed.")
	}

	p.sink.Record(KindDNSQuery, server,
		fmt.Sprintf("name=%s qtype=%s dnssec=%t outcome=%s", name, strings.ToUpper(qtype), dnssec, outcome))
}

// DNSPayload records a large synthetic text-record payload in place of a
// real query. Nothing touches the wire; the log carries the payload length,
// never its content.
func (p *Probes) DNSPayload(server, name string, size int) {
	p.sink.Record(KindDNSPayload, server,
		fmt.Sprintf("name=%s qtype=TXT payload_len=%d outcome=simulated", name, size))
}
