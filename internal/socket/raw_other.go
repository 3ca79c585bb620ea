//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package socket

import (
	"fmt"
	"net/netip"
	"runtime"
	"time"

	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/packet"
)

// Open always fails, raw IP_HDRINCL sockets are not available here
func (p *RawProvisioner) Open(proto packet.Protocol, source netip.AddrPort, timeout time.Duration) (Conn, error) {
	return nil, exception.NewSocketError(
		"socket",
		fmt.Errorf("raw sockets are not supported on %s", runtime.GOOS),
	)
}
