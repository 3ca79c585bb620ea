package util

import (
	"errors"
	"net"
	"net/netip"
	"strconv"
)

// ErrNoInterface returned when no local interface holds the selected
// source address
var ErrNoInterface = errors.New("failed to find interface for address")

// discard port used when dialing for route lookup, nothing is ever sent
const routeProbePort = 9

// NetworkInfo describes the local end of the route towards a destination
type NetworkInfo struct {
	Hostname    string
	Destination netip.Addr
	Interface   *net.Interface
	UserIP      netip.Addr
	Cidr        netip.Prefix
}

// MTU returns the outgoing interface MTU, zero when unknown
func (n *NetworkInfo) MTU() int {
	if n.Interface == nil {
		return 0
	}

	return n.Interface.MTU
}

// PreferredSourceIP returns the address the kernel would use as source when
// talking to dst
func PreferredSourceIP(dst netip.Addr) (netip.Addr, error) {
	// udp doesn't make a full connection and will find the default ip
	// that traffic will use if say 2 are configured (wired and wireless)
	conn, err := net.Dial(
		"udp4",
		net.JoinHostPort(dst.Unmap().String(), strconv.Itoa(routeProbePort)),
	)

	if err != nil {
		return netip.Addr{}, err
	}

	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	addr, ok := netip.AddrFromSlice(localAddr.IP.To4())

	if !ok {
		return netip.Addr{}, errors.New("no IPv4 source address for " + dst.String())
	}

	return addr, nil
}

// get network interface associated with ip
func getInterfaceByIP(ip netip.Addr) (*net.Interface, netip.Prefix, error) {
	interfaces, err := net.Interfaces()

	if err != nil {
		return nil, netip.Prefix{}, err
	}

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()

		if err != nil {
			continue
		}

		for _, addr := range addrs {
			prefix, err := netip.ParsePrefix(addr.String())

			if err != nil {
				continue
			}

			if prefix.Addr().Unmap() == ip {
				iface := iface
				return &iface, prefix.Masked(), nil
			}
		}
	}

	return nil, netip.Prefix{}, ErrNoInterface
}

// GetNetworkInfo returns the source address, interface, and network used to
// reach dst
func GetNetworkInfo(dst netip.Addr) (*NetworkInfo, error) {
	host, err := Hostname()

	if err != nil {
		return nil, err
	}

	userIP, err := PreferredSourceIP(dst)

	if err != nil {
		return nil, err
	}

	iface, cidr, err := getInterfaceByIP(userIP)

	if err != nil {
		return nil, err
	}

	return &NetworkInfo{
		Hostname:    host,
		Destination: dst,
		Interface:   iface,
		UserIP:      userIP,
		Cidr:        cidr,
	}, nil
}
