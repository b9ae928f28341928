//go:build linux

package probes

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"
)

// Source ports come from a dedicated ephemeral range so the probes are easy
// to pick out of packet captures.
const (
	ephemeralPortStart = 32768
	ephemeralPortEnd   = 61000
	defaultTCPWindow   = 65535
)

// rawSocketAvailable is the soft capability check: opening a raw TCP socket
// requires CAP_NET_RAW. Failure here only disables the SYN probe.
func rawSocketAvailable() bool {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_TCP)
	if err != nil {
		return false
	}
	unix.Close(fd)
	return true
}

// SYNProbe sends exactly one TCP SYN at the target without completing the
// handshake. One packet, no retransmit, no flood. Skipped (and logged as
// skipped) when raw sockets are unavailable.
func (p *Probes) SYNProbe(ctx context.Context, host string, port int) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if !p.synEnabled {
		p.sink.Record(KindSYNProbe, addr, "outcome=skipped reason=no_raw_socket")
		return
	}
	if ctx.Err() != nil {
		return
	}

	outcome := "sent"
	if err := sendSYN(host, port); err != nil {
		outcome = "failed"
		p.logger.Debug().Err(err).Str("addr", addr).Msg("SYN probe attempt failed.")
	}

	p.sink.Record(KindSYNProbe, addr, fmt.Sprintf("flags=SYN count=1 outcome=%s", outcome))
}

func sendSYN(host string, port int) error {
	dstIP, err := resolveIPv4(host)
	if err != nil {
		return err
	}
	srcIP, err := localAddrFor(dstIP)
	if err != nil {
		return err
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(ephemeralPortStart + rand.Intn(ephemeralPortEnd-ephemeralPortStart)),
		DstPort: layers.TCPPort(port),
		Seq:     rand.Uint32(),
		SYN:     true,
		Window:  defaultTCPWindow,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcp); err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_TCP)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	// The serialized buffer carries its own IP header.
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		return err
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], dstIP.To4())
	return unix.Sendto(fd, buf.Bytes(), 0, sa)
}

func resolveIPv4(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("probes: %s is not an IPv4 address", host)
	}
	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, err
	}
	if v4 := addr.IP.To4(); v4 != nil {
		return v4, nil
	}
	return nil, fmt.Errorf("probes: no IPv4 address for %s", host)
}

// localAddrFor finds the source address the kernel would route toward dst.
// The UDP dial never sends a packet; it only consults the routing table.
func localAddrFor(dst net.IP) (net.IP, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(dst.String(), "53"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.To4(), nil
}
