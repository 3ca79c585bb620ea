package socket

import "github.com/robgonnella/pmtud/internal/logger"

// RawProvisioner opens raw IPv4 sockets with IP_HDRINCL so every probe
// carries the header we build, DF bit included
type RawProvisioner struct {
	log logger.Logger
}

// NewRawProvisioner returns a new instance of RawProvisioner
func NewRawProvisioner() *RawProvisioner {
	return &RawProvisioner{
		log: logger.New().Component("socket"),
	}
}
