package discovery

import (
	"errors"
	"time"

	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/robgonnella/pmtud/internal/socket"
)

// receive buffer large enough for any IPv4 datagram
const recvBufferSize = 65536

// Transport sends staged probes over a socket and classifies what comes back
type Transport struct {
	conn      socket.Conn
	validator Validator
	timeout   time.Duration
	deadline  time.Time
	discarded int
	now       func() time.Time
	buf       []byte
	log       logger.Logger
}

// NewTransport returns a new instance of Transport. timeout bounds the wait
// for a reply to each sent probe, zero waits indefinitely.
func NewTransport(conn socket.Conn, validator Validator, timeout time.Duration) *Transport {
	return &Transport{
		conn:      conn,
		validator: validator,
		timeout:   timeout,
		now:       time.Now,
		buf:       make([]byte, recvBufferSize),
		log:       logger.New().Component("discovery"),
	}
}

// Discarded returns the number of foreign packets dropped so far
func (t *Transport) Discarded() int {
	return t.discarded
}

// Send transmits image and starts the reply deadline. A local refusal
// because of size is reported as OutcomeTooBig, any other failure is fatal.
func (t *Transport) Send(image []byte) (Outcome, error) {
	err := t.conn.Send(image, t.validator.Destination)

	switch {
	case err == nil:
		if t.timeout > 0 {
			t.deadline = t.now().Add(t.timeout)
		}

		return OutcomeSent, nil
	case errors.Is(err, socket.ErrMessageTooBig):
		return OutcomeTooBig, nil
	default:
		return OutcomeFatal, err
	}
}

// Receive waits for a datagram that is not foreign to the run. Foreign
// packets are dropped and waiting resumes, but never past the deadline set
// by the last Send.
func (t *Transport) Receive() (Outcome, Verdict, error) {
	for {
		n, from, err := t.conn.Receive(t.buf)

		switch {
		case err == nil:
		case errors.Is(err, socket.ErrTimeout):
			return OutcomeTimeout, Verdict{}, nil
		default:
			return OutcomeFatal, Verdict{}, err
		}

		verdict := t.validator.Classify(t.buf[:n], from)

		if verdict.Class != Foreign {
			return OutcomeReply, verdict, nil
		}

		t.discarded++

		t.log.Debug().
			Str("from", from.String()).
			Int("bytes", n).
			Msg("discarding foreign packet")

		if t.timeout > 0 && !t.now().Before(t.deadline) {
			return OutcomeTimeout, Verdict{}, nil
		}
	}
}
