package discovery

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/robgonnella/pmtud/internal/socket"
)

// Option configures an Engine
type Option func(e *Engine)

// WithStepObserver calls fn synchronously every time the bracket moves
func WithStepObserver(fn func(step Step)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithClock replaces time.Now when enforcing reply deadlines
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine implements the Discoverer interface with a sequential binary
// search over probe sizes
type Engine struct {
	provisioner socket.Provisioner
	observer    func(step Step)
	now         func() time.Time
	log         logger.Logger
}

// NewEngine returns a new instance of Engine
func NewEngine(provisioner socket.Provisioner, opts ...Option) *Engine {
	e := &Engine{
		provisioner: provisioner,
		now:         time.Now,
		log:         logger.New().Component("discovery"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Discover searches for the largest probe size that elicits a genuine reply
// from req.Destination. It returns exception.ErrInvalidParameter before
// touching the network, an error matching exception.ErrSocket when the
// socket cannot be provisioned or fails mid-run, and
// exception.ErrNoResponse, alongside the partial result, when no size
// was ever confirmed.
func (e *Engine) Discover(req Request) (*Result, error) {
	req, err := normalize(req)

	if err != nil {
		return nil, err
	}

	probe, err := packet.New(req.Protocol, req.Source, req.Destination, req.MaxSize)

	if err != nil {
		return nil, fmt.Errorf("%w: %s", exception.ErrInvalidParameter, err)
	}

	conn, err := e.provisioner.Open(req.Protocol, req.Source, req.Timeout)

	if err != nil {
		return nil, asSocketError("open", err)
	}

	defer conn.Close()

	validator := Validator{
		Protocol:    req.Protocol,
		Destination: req.Destination,
	}

	if probe.ICMP != nil {
		validator.MatchEchoID = true
		validator.EchoID = probe.ICMP.ID
	}

	transport := NewTransport(conn, validator, req.Timeout)
	transport.now = e.now

	run := &run{
		req:       req,
		probe:     probe,
		transport: transport,
		state:     newSearchState(req.MinSize, req.MaxSize, req.MaxTries),
		result: &Result{
			Protocol:    req.Protocol,
			Destination: req.Destination,
		},
		engine: e,
	}

	e.log.Debug().
		Str("destination", req.Destination.String()).
		Str("protocol", req.Protocol.String()).
		Int("lower", req.MinSize).
		Int("upper", req.MaxSize).
		Int("maxTries", req.MaxTries).
		Dur("timeout", req.Timeout).
		Msg("starting path MTU discovery")

	if err := run.search(); err != nil {
		return nil, err
	}

	best, found := run.state.result()

	run.result.Size = best
	run.result.Found = found
	run.result.Discarded = run.transport.Discarded()

	if !found {
		return run.result, exception.ErrNoResponse
	}

	return run.result, nil
}

// normalize validates req and fills in default bounds
func normalize(req Request) (Request, error) {
	if !req.Destination.IsValid() {
		return req, fmt.Errorf("%w: missing destination", exception.ErrInvalidParameter)
	}

	dst := req.Destination.Addr().Unmap()

	if !dst.Is4() || dst.IsUnspecified() {
		return req, fmt.Errorf("%w: destination %s is not an IPv4 host", exception.ErrInvalidParameter, dst)
	}

	req.Destination = netip.AddrPortFrom(dst, req.Destination.Port())

	if req.Source.IsValid() {
		src := req.Source.Addr().Unmap()

		if !src.Is4() {
			return req, fmt.Errorf("%w: source %s is not an IPv4 address", exception.ErrInvalidParameter, src)
		}

		req.Source = netip.AddrPortFrom(src, req.Source.Port())
	}

	if !req.Protocol.Valid() {
		return req, fmt.Errorf("%w: %s", exception.ErrInvalidParameter, req.Protocol)
	}

	if req.Protocol == packet.UDP && req.Destination.Port() == 0 {
		return req, fmt.Errorf("%w: udp destination requires a port", exception.ErrInvalidParameter)
	}

	if req.MaxTries < 1 {
		return req, fmt.Errorf("%w: max tries must be at least 1, got %d", exception.ErrInvalidParameter, req.MaxTries)
	}

	if req.Timeout < 0 {
		return req, fmt.Errorf("%w: negative timeout %s", exception.ErrInvalidParameter, req.Timeout)
	}

	if req.MinSize == 0 {
		req.MinSize = packet.MinSize
	}

	if req.MaxSize == 0 {
		req.MaxSize = packet.MaxSize
	}

	if req.MinSize < req.Protocol.HeaderLen() || req.MinSize > req.MaxSize || req.MaxSize > packet.MaxSize {
		return req, fmt.Errorf(
			"%w: invalid size range [%d, %d]",
			exception.ErrInvalidParameter,
			req.MinSize,
			req.MaxSize,
		)
	}

	return req, nil
}

func asSocketError(op string, err error) error {
	if errors.Is(err, exception.ErrSocket) {
		return err
	}

	return exception.NewSocketError(op, err)
}

// run holds the mutable state of a single Discover call
type run struct {
	req       Request
	probe     *packet.Probe
	transport *Transport
	state     *searchState
	result    *Result
	engine    *Engine
	sends     int
}

func (r *run) search() error {
	for r.state.active() {
		size := r.state.next()

		image, err := r.probe.Stage(size)

		if err != nil {
			if !errors.Is(err, packet.ErrSizeOutOfRange) {
				return err
			}

			// the header cannot even describe this size
			r.state.reject()
			r.record(ReasonTooBig, Verdict{})
			continue
		}

		outcome, err := r.transport.Send(image)

		if err != nil {
			return asSocketError("send", err)
		}

		if outcome == OutcomeTooBig {
			r.state.reject()
			r.record(ReasonTooBig, Verdict{})
			continue
		}

		r.sends++
		r.result.Sends++

		outcome, verdict, err := r.transport.Receive()

		if err != nil {
			return asSocketError("receive", err)
		}

		if outcome == OutcomeTimeout {
			r.engine.log.Debug().
				Int("size", size).
				Int("attempt", r.state.attempt()).
				Msg("probe timed out")

			if r.state.timeout() {
				r.record(ReasonTimedOut, Verdict{})
			}

			continue
		}

		// foreign packets never leave the transport
		switch verdict.Class {
		case Success:
			r.state.confirm()
			r.record(ReasonConfirmed, verdict)
		case NegativeSignal:
			r.state.reject()
			r.record(ReasonNegativeSignal, verdict)
		}
	}

	return nil
}

// record notes why the bracket moved and notifies the observer
func (r *run) record(reason Reason, verdict Verdict) {
	step := Step{
		Size:    r.state.current,
		Reason:  reason,
		Verdict: verdict,
		Sends:   r.sends,
		Lower:   r.state.lower,
		Upper:   r.state.upper,
	}

	r.sends = 0
	r.result.Steps = append(r.result.Steps, step)

	r.engine.log.Debug().
		Int("size", step.Size).
		Str("reason", step.Describe()).
		Int("lower", step.Lower).
		Int("upper", step.Upper).
		Msg("bracket moved")

	if r.engine.observer != nil {
		r.engine.observer(step)
	}
}
