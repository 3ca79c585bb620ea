package socket

import (
	"errors"
	"net/netip"
	"time"

	"github.com/robgonnella/pmtud/internal/packet"
)

//go:generate mockgen -destination=../mock/socket/mock_socket.go -package=mock_socket . Conn,Provisioner

// ErrTimeout returned by Receive when nothing arrived within the
// configured receive timeout
var ErrTimeout = errors.New("receive timed out")

// ErrMessageTooBig returned by Send when the local stack refuses a
// datagram larger than the outgoing interface allows
var ErrMessageTooBig = errors.New("message too big for local interface")

// ErrNoFragmentUnsupported returned on platforms where the socket cannot be
// told to ignore cached path MTU. The DF bit is still carried in the header.
var ErrNoFragmentUnsupported = errors.New("path MTU cache control unsupported")

// Conn a socket handle owned by a single discovery run
type Conn interface {
	// Send hands a complete IPv4 datagram, header included, to the stack
	Send(b []byte, dst netip.AddrPort) error
	// Receive blocks up to the receive timeout for one datagram
	Receive(b []byte) (int, netip.Addr, error)
	Close() error
}

// Provisioner opens and configures sockets for a protocol
type Provisioner interface {
	Open(proto packet.Protocol, source netip.AddrPort, timeout time.Duration) (Conn, error)
}
