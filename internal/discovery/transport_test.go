package discovery_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/robgonnella/pmtud/internal/discovery"
	mock_socket "github.com/robgonnella/pmtud/internal/mock/socket"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/robgonnella/pmtud/internal/socket"
	"github.com/stretchr/testify/assert"
)

func TestTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mock_socket.NewMockConn(ctrl)

	validator := discovery.Validator{
		Protocol:    packet.ICMP,
		Destination: target,
		MatchEchoID: true,
		EchoID:      echoID,
	}

	transport := discovery.NewTransport(conn, validator, 0)

	deliver := func(data []byte, from netip.Addr) func(b []byte) (int, netip.Addr, error) {
		return func(b []byte) (int, netip.Addr, error) {
			return copy(b, data), from, nil
		}
	}

	t.Run("sends image to destination", func(st *testing.T) {
		image := []byte{0x45}

		conn.EXPECT().Send(image, target).Return(nil)

		outcome, err := transport.Send(image)

		assert.NoError(st, err)
		assert.Equal(st, discovery.OutcomeSent, outcome)
	})

	t.Run("reports local size refusal", func(st *testing.T) {
		conn.EXPECT().Send(gomock.Any(), target).Return(socket.ErrMessageTooBig)

		outcome, err := transport.Send([]byte{0x45})

		assert.NoError(st, err)
		assert.Equal(st, discovery.OutcomeTooBig, outcome)
	})

	t.Run("reports fatal send failure", func(st *testing.T) {
		mockErr := errors.New("mock error")

		conn.EXPECT().Send(gomock.Any(), target).Return(mockErr)

		outcome, err := transport.Send([]byte{0x45})

		assert.ErrorIs(st, err, mockErr)
		assert.Equal(st, discovery.OutcomeFatal, outcome)
	})

	t.Run("classifies received datagram", func(st *testing.T) {
		conn.EXPECT().Receive(gomock.Any()).DoAndReturn(deliver(echoReply(targetIP), target.Addr()))

		outcome, verdict, err := transport.Receive()

		assert.NoError(st, err)
		assert.Equal(st, discovery.OutcomeReply, outcome)
		assert.Equal(st, discovery.Success, verdict.Class)
	})

	t.Run("keeps waiting past foreign packets without resending", func(st *testing.T) {
		before := transport.Discarded()

		gomock.InOrder(
			conn.EXPECT().Receive(gomock.Any()).DoAndReturn(deliver(echoReply(otherIP), other)),
			conn.EXPECT().Receive(gomock.Any()).DoAndReturn(deliver(echoReply(otherIP), other)),
			conn.EXPECT().Receive(gomock.Any()).DoAndReturn(deliver(fragNeeded(routerIP, 1400), router)),
		)

		outcome, verdict, err := transport.Receive()

		assert.NoError(st, err)
		assert.Equal(st, discovery.OutcomeReply, outcome)
		assert.Equal(st, discovery.NegativeSignal, verdict.Class)
		assert.Equal(st, before+2, transport.Discarded())
	})

	t.Run("reports timeout", func(st *testing.T) {
		conn.EXPECT().Receive(gomock.Any()).Return(0, target.Addr(), socket.ErrTimeout)

		outcome, _, err := transport.Receive()

		assert.NoError(st, err)
		assert.Equal(st, discovery.OutcomeTimeout, outcome)
	})

	t.Run("reports fatal receive failure", func(st *testing.T) {
		mockErr := errors.New("mock error")

		conn.EXPECT().Receive(gomock.Any()).Return(0, target.Addr(), mockErr)

		outcome, _, err := transport.Receive()

		assert.ErrorIs(st, err, mockErr)
		assert.Equal(st, discovery.OutcomeFatal, outcome)
	})
}
