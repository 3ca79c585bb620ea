package core

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/robgonnella/pmtud/internal/config"
	"github.com/robgonnella/pmtud/internal/discovery"
	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/robgonnella/pmtud/internal/util"
)

// Report is the outcome of discovery against one expanded target
type Report struct {
	Target netip.AddrPort
	Result *discovery.Result
	Err    error
}

// Found reports whether a path MTU was determined
func (r *Report) Found() bool {
	return r.Err == nil && r.Result != nil && r.Result.Found
}

// SourceSelector picks a source address for reaching dst
type SourceSelector func(dst netip.Addr) (netip.Addr, error)

// Option configures a Core
type Option func(c *Core)

// WithSourceSelector overrides kernel route based source selection
func WithSourceSelector(fn SourceSelector) Option {
	return func(c *Core) {
		c.selectSource = fn
	}
}

// Core represents our core data structure
type Core struct {
	conf          config.Config
	configService config.Service
	discoverer    discovery.Discoverer
	selectSource  SourceSelector
	logger        logger.Logger
}

// New returns new core module for given configuration
func New(
	conf *config.Config,
	configService config.Service,
	discoverer discovery.Discoverer,
	opts ...Option,
) *Core {
	c := &Core{
		conf:          *conf,
		configService: configService,
		discoverer:    discoverer,
		selectSource:  util.PreferredSourceIP,
		logger:        logger.New().Component("core"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Conf returns the active configuration
func (c *Core) Conf() config.Config {
	return c.conf
}

// SetConf replaces the active configuration without persisting it
func (c *Core) SetConf(conf config.Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	c.conf = conf

	return nil
}

// UpdateConfig persists conf and makes it active
func (c *Core) UpdateConfig(conf config.Config) error {
	if err := c.configService.Update(&conf); err != nil {
		return err
	}

	c.conf = conf

	return nil
}

// Discover expands targets and runs discovery against each resulting
// destination in turn, handing every report to onReport. Invalid targets
// fail before anything is sent. A socket error aborts the remaining
// destinations since it would repeat for each of them.
func (c *Core) Discover(targets []string, onReport func(r *Report)) error {
	if err := c.conf.Validate(); err != nil {
		return err
	}

	proto, _ := packet.ParseProtocol(c.conf.Protocol)

	dests, err := ExpandTargets(targets, proto)

	if err != nil {
		return err
	}

	localHost, localPort, err := splitLocal(c.conf.Local)

	if err != nil {
		return err
	}

	for _, dst := range dests {
		req := discovery.Request{
			Source:      c.source(proto, dst.Addr(), localHost, localPort),
			Destination: dst,
			Protocol:    proto,
			MaxTries:    c.conf.Retries,
			Timeout:     time.Duration(c.conf.Timeout) * time.Millisecond,
			MinSize:     c.conf.MinSize,
			MaxSize:     c.conf.MaxSize,
		}

		c.logger.Debug().
			Str("target", dst.String()).
			Str("source", req.Source.String()).
			Msg("discovering path MTU")

		result, err := c.discoverer.Discover(req)

		onReport(&Report{
			Target: dst,
			Result: result,
			Err:    err,
		})

		if errors.Is(err, exception.ErrSocket) || errors.Is(err, exception.ErrInvalidParameter) {
			return err
		}
	}

	return nil
}

// source returns the configured local address or, for UDP, the address
// the kernel routes through so the UDP checksum can be filled in
func (c *Core) source(proto packet.Protocol, dst netip.Addr, host netip.Addr, port uint16) netip.AddrPort {
	if host.IsValid() {
		return netip.AddrPortFrom(host, port)
	}

	if proto != packet.UDP {
		return netip.AddrPort{}
	}

	addr, err := c.selectSource(dst)

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("target", dst.String()).
			Msg("failed to select source address, UDP checksum will be left unset")

		addr = netip.IPv4Unspecified()
	}

	return netip.AddrPortFrom(addr, port)
}

func splitLocal(local string) (netip.Addr, uint16, error) {
	if local == "" {
		return netip.Addr{}, config.DefaultLocalPort, nil
	}

	host, portStr, err := net.SplitHostPort(local)

	if err != nil {
		return netip.Addr{}, 0, fmt.Errorf("%w: local address: %s", exception.ErrInvalidParameter, err)
	}

	port := uint64(config.DefaultLocalPort)

	if portStr != "" {
		port, err = strconv.ParseUint(portStr, 10, 16)

		if err != nil {
			return netip.Addr{}, 0, fmt.Errorf("%w: local port %q", exception.ErrInvalidParameter, portStr)
		}
	}

	if host == "" {
		return netip.Addr{}, uint16(port), nil
	}

	addr, err := netip.ParseAddr(host)

	if err != nil || !addr.Unmap().Is4() {
		return netip.Addr{}, 0, fmt.Errorf("%w: local address %q is not IPv4", exception.ErrInvalidParameter, host)
	}

	return addr.Unmap(), uint16(port), nil
}
