package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/packet"
)

// DefaultLocalPort local UDP port used when none is configured
const DefaultLocalPort = 25101

// Upper limits for retries and timeout (ms)
const (
	MaxRetries = 1000000
	MaxTimeout = 1000000
)

// Config represents the data structure of our user provided yaml configuration
type Config struct {
	// Protocol "icmp" or "udp"
	Protocol string `yaml:"protocol"`
	// Retries attempts per probe size before it is declared invalid
	Retries int `yaml:"retries"`
	// Timeout receive timeout in milliseconds
	Timeout int `yaml:"timeout"`
	// Local source address and port, either may be empty ("host:port")
	Local   string `yaml:"local"`
	MinSize int    `yaml:"minSize"`
	MaxSize int    `yaml:"maxSize"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Protocol: "icmp",
		Retries:  3,
		Timeout:  1000,
		Local:    net.JoinHostPort("", strconv.Itoa(DefaultLocalPort)),
		MinSize:  packet.MinSize,
		MaxSize:  packet.MaxSize,
	}
}

// Validate checks every field without touching the network
func (c *Config) Validate() error {
	proto, err := packet.ParseProtocol(c.Protocol)

	if err != nil {
		return fmt.Errorf("%w: %s", exception.ErrInvalidParameter, err)
	}

	if c.Retries < 1 || c.Retries > MaxRetries {
		return fmt.Errorf(
			"%w: retries must be between 1 and %d, got %d",
			exception.ErrInvalidParameter,
			MaxRetries,
			c.Retries,
		)
	}

	if c.Timeout < 0 || c.Timeout > MaxTimeout {
		return fmt.Errorf(
			"%w: timeout must be between 0 and %d ms, got %d",
			exception.ErrInvalidParameter,
			MaxTimeout,
			c.Timeout,
		)
	}

	if c.MinSize < proto.HeaderLen() || c.MinSize > c.MaxSize || c.MaxSize > packet.MaxSize {
		return fmt.Errorf(
			"%w: invalid size range [%d, %d]",
			exception.ErrInvalidParameter,
			c.MinSize,
			c.MaxSize,
		)
	}

	if c.Local != "" {
		if _, _, err := net.SplitHostPort(c.Local); err != nil {
			return fmt.Errorf("%w: local address: %s", exception.ErrInvalidParameter, err)
		}
	}

	return nil
}
