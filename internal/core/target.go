package core

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/projectdiscovery/mapcidr"
	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/robgonnella/pmtud/internal/util"
)

// ExpandTargets turns command line targets into IPv4 destinations. ICMP
// targets are a host, an address, or a CIDR block, any ":port" suffix is
// dropped. UDP targets require the ":port" suffix. Duplicates are removed.
func ExpandTargets(targets []string, proto packet.Protocol) ([]netip.AddrPort, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets provided", exception.ErrInvalidParameter)
	}

	dests := []netip.AddrPort{}

	for _, t := range targets {
		host := t
		port := uint16(0)

		if proto == packet.UDP {
			h, p, err := net.SplitHostPort(t)

			if err != nil {
				return nil, fmt.Errorf("%w: udp target %q must be host:port", exception.ErrInvalidParameter, t)
			}

			n, err := strconv.ParseUint(p, 10, 16)

			if err != nil || n == 0 {
				return nil, fmt.Errorf("%w: invalid port in target %q", exception.ErrInvalidParameter, t)
			}

			host = h
			port = uint16(n)
		} else if h, p, err := net.SplitHostPort(t); err == nil {
			logger.New().Component("core").Warn().
				Str("target", t).
				Str("port", p).
				Msg("ignoring port for icmp target")

			host = h
		}

		addrs, err := expandHost(host)

		if err != nil {
			return nil, fmt.Errorf("%w: target %q: %s", exception.ErrInvalidParameter, t, err)
		}

		for _, addr := range addrs {
			dests = append(dests, netip.AddrPortFrom(addr, port))
		}
	}

	return util.Unique(dests), nil
}

func expandHost(host string) ([]netip.Addr, error) {
	if strings.Contains(host, "/") {
		ips, err := mapcidr.IPAddresses(host)

		if err != nil {
			return nil, err
		}

		addrs := []netip.Addr{}

		for _, ip := range ips {
			addr, err := netip.ParseAddr(ip)

			if err != nil || !addr.Unmap().Is4() {
				continue
			}

			addrs = append(addrs, addr.Unmap())
		}

		if len(addrs) == 0 {
			return nil, fmt.Errorf("no IPv4 addresses in %s", host)
		}

		return addrs, nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !addr.Unmap().Is4() {
			return nil, fmt.Errorf("%s is not an IPv4 address", host)
		}

		return []netip.Addr{addr.Unmap()}, nil
	}

	ipAddr, err := net.ResolveIPAddr("ip4", host)

	if err != nil {
		return nil, err
	}

	addr, ok := netip.AddrFromSlice(ipAddr.IP.To4())

	if !ok {
		return nil, fmt.Errorf("no IPv4 address for %s", host)
	}

	return []netip.Addr{addr}, nil
}
