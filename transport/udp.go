// Package transport provides a minimal UDP datagram transport for
// exchanging IKEv2 messages. It handles framing (one packet per datagram,
// per RFC 7296 section 3.1) and NAT-traversal destination-address capture;
// it does not implement retransmission, windowing or any exchange state
// machine -- that belongs to a higher layer built on top of pkt.
package transport

import (
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/dn0/ikev2/pkt"
)

// Conn is a transport-agnostic packet socket: it hides the v4/v6 control
// message plumbing needed to learn which local address a datagram arrived
// on, information NAT detection needs.
type Conn interface {
	ReadPacket() (data []byte, from, to net.Addr, err error)
	WritePacket(data []byte, to net.Addr) error
	LocalAddr() net.Addr
	Close() error
}

type udp4Conn struct{ pc *ipv4.PacketConn }
type udp6Conn struct{ pc *ipv6.PacketConn }

// Listen opens a UDP socket on address (host:port, host may be empty for
// all interfaces) and returns a Conn able to report each packet's
// destination address.
func Listen(network, address string) (Conn, error) {
	c, err := net.ListenPacket(network, address)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}
	switch network {
	case "udp4":
		pc := ipv4.NewPacketConn(c)
		if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
			pc.Close()
			return nil, errors.Wrap(err, "set control message")
		}
		return &udp4Conn{pc: pc}, nil
	case "udp6":
		pc := ipv6.NewPacketConn(c)
		if err := pc.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true); err != nil {
			pc.Close()
			return nil, errors.Wrap(err, "set control message")
		}
		return &udp6Conn{pc: pc}, nil
	default:
		return nil, pkt.ErrF(pkt.ErrUnsupported, "transport: network %q", network)
	}
}

const maxDatagram = 1 << 16

func (c *udp4Conn) ReadPacket() ([]byte, net.Addr, net.Addr, error) {
	buf := make([]byte, maxDatagram)
	n, cm, from, err := c.pc.ReadFrom(buf)
	if err != nil {
		return nil, nil, nil, err
	}
	var to net.Addr
	if cm != nil {
		to = &net.UDPAddr{IP: cm.Dst}
	}
	return buf[:n], from, to, nil
}

func (c *udp4Conn) WritePacket(data []byte, to net.Addr) error {
	_, err := c.pc.WriteTo(data, nil, to)
	return err
}

func (c *udp4Conn) LocalAddr() net.Addr { return c.pc.LocalAddr() }
func (c *udp4Conn) Close() error        { return c.pc.Close() }

func (c *udp6Conn) ReadPacket() ([]byte, net.Addr, net.Addr, error) {
	buf := make([]byte, maxDatagram)
	n, cm, from, err := c.pc.ReadFrom(buf)
	if err != nil {
		return nil, nil, nil, err
	}
	var to net.Addr
	if cm != nil {
		to = &net.UDPAddr{IP: cm.Dst}
	}
	return buf[:n], from, to, nil
}

func (c *udp6Conn) WritePacket(data []byte, to net.Addr) error {
	_, err := c.pc.WriteTo(data, nil, to)
	return err
}

func (c *udp6Conn) LocalAddr() net.Addr { return c.pc.LocalAddr() }
func (c *udp6Conn) Close() error        { return c.pc.Close() }

// ReadMessage reads one datagram from conn and parses it into a pkt.Packet.
// Malformed and policy-rejecting datagrams are logged and discarded rather
// than returned as an error, matching the DoS-mitigation silent-discard
// posture the codec documents for inbound parse/crypto failures.
func ReadMessage(conn Conn, logger log.Logger) (*pkt.Packet, net.Addr, error) {
	for {
		data, from, _, err := conn.ReadPacket()
		if err != nil {
			return nil, nil, err
		}
		p, err := pkt.ParseInbound(data)
		if err != nil {
			level.Info(logger).Log("msg", "discarding malformed datagram", "from", from, "err", err)
			continue
		}
		return p, from, nil
	}
}
