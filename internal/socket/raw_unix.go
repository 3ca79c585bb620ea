//go:build linux || darwin || freebsd || netbsd || openbsd

package socket

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/packet"
	"golang.org/x/sys/unix"
)

// Open creates a raw socket carrying proto, binds it to source when one is
// given, and applies the receive timeout, IP_HDRINCL, and the no-fragment
// policy of the running platform. A zero timeout blocks indefinitely.
func (p *RawProvisioner) Open(proto packet.Protocol, source netip.AddrPort, timeout time.Duration) (Conn, error) {
	if !proto.Valid() {
		return nil, exception.NewSocketError("socket", fmt.Errorf("%w: %d", packet.ErrUnknownProtocol, int(proto)))
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, int(proto))

	if err != nil {
		return nil, exception.NewSocketError("socket", os.NewSyscallError("socket", err))
	}

	fail := func(op string, err error) (Conn, error) {
		unix.Close(fd)
		return nil, exception.NewSocketError(op, err)
	}

	if addr := source.Addr(); addr.Is4() && !addr.IsUnspecified() {
		sa := &unix.SockaddrInet4{Port: int(source.Port()), Addr: addr.As4()}

		if err := unix.Bind(fd, sa); err != nil {
			return fail("bind", os.NewSyscallError("bind", err))
		}
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fail("setsockopt", os.NewSyscallError("setsockopt SO_RCVTIMEO", err))
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		return fail("setsockopt", os.NewSyscallError("setsockopt IP_HDRINCL", err))
	}

	if err := configureNoFragment(fd); err != nil {
		if !errors.Is(err, ErrNoFragmentUnsupported) {
			return fail("setsockopt", err)
		}

		p.log.Warn().
			Str("protocol", proto.String()).
			Msg("cannot disable path MTU caching on this platform, DF is set in the header but a previously cached path MTU may cause false negatives")
	}

	p.log.Debug().
		Str("protocol", proto.String()).
		Str("source", source.String()).
		Dur("timeout", timeout).
		Msg("opened raw socket")

	return &rawConn{fd: fd}, nil
}

// rawConn implements Conn over a raw socket file descriptor
type rawConn struct {
	fd int
}

func (c *rawConn) Send(b []byte, dst netip.AddrPort) error {
	sa := &unix.SockaddrInet4{Port: int(dst.Port()), Addr: dst.Addr().As4()}

	for {
		err := unix.Sendto(c.fd, b, 0, sa)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EMSGSIZE):
			return ErrMessageTooBig
		default:
			return os.NewSyscallError("sendto", err)
		}
	}
}

func (c *rawConn) Receive(b []byte) (int, netip.Addr, error) {
	for {
		n, from, err := unix.Recvfrom(c.fd, b, 0)

		switch {
		case err == nil:
			if sa, ok := from.(*unix.SockaddrInet4); ok {
				return n, netip.AddrFrom4(sa.Addr), nil
			}

			return n, netip.Addr{}, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, netip.Addr{}, ErrTimeout
		default:
			return 0, netip.Addr{}, os.NewSyscallError("recvfrom", err)
		}
	}
}

func (c *rawConn) Close() error {
	return unix.Close(c.fd)
}
