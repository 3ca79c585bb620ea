package echo

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/robgonnella/pmtud/internal/logger"
)

// datagram buffer large enough for any UDP payload
const bufferSize = 65536

// Server answers every UDP datagram by sending it back to its sender. It is
// the remote end for UDP mode discovery, which needs the destination to
// reply to probes of any size.
type Server struct {
	conn   *net.UDPConn
	log    logger.Logger
	mux    sync.Mutex
	echoed int
}

// Listen binds a UDP socket on addr, e.g. ":9000"
func Listen(addr string) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)

	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", udpAddr)

	if err != nil {
		return nil, err
	}

	return &Server{
		conn: conn,
		log:  logger.New().Component("echo"),
	}, nil
}

// Addr returns the bound local address
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Echoed returns the number of datagrams sent back so far
func (s *Server) Echoed() int {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.echoed
}

// Serve echoes datagrams until ctx is cancelled or the socket fails
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.log.Info().Str("addr", s.Addr().String()).Msg("echo server listening")

	buf := make([]byte, bufferSize)

	for {
		n, from, err := s.conn.ReadFromUDP(buf)

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		if _, err := s.conn.WriteToUDP(buf[:n], from); err != nil {
			s.log.Error().Err(err).Str("peer", from.String()).Msg("failed to echo datagram")
			continue
		}

		s.mux.Lock()
		s.echoed++
		s.mux.Unlock()

		s.log.Debug().
			Str("peer", from.String()).
			Int("bytes", n).
			Msg("echoed datagram")
	}
}

// Close releases the socket
func (s *Server) Close() error {
	return s.conn.Close()
}
