package echo_test

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/robgonnella/pmtud/internal/echo"
	"github.com/stretchr/testify/assert"
)

func TestServer(t *testing.T) {
	server, err := echo.Listen("127.0.0.1:0")

	if err != nil {
		t.Logf("failed to listen: %s", err.Error())
		t.FailNow()
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)

	go func() {
		done <- server.Serve(ctx)
	}()

	t.Run("echoes datagrams back to sender", func(st *testing.T) {
		client, err := net.Dial("udp4", server.Addr().String())

		assert.NoError(st, err)

		defer client.Close()

		payload := bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz"), 50)

		_, err = client.Write(payload)
		assert.NoError(st, err)

		client.SetReadDeadline(time.Now().Add(2 * time.Second))

		buf := make([]byte, 2048)
		n, err := client.Read(buf)

		assert.NoError(st, err)
		assert.Equal(st, payload, buf[:n])
		assert.Eventually(st, func() bool {
			return server.Echoed() == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("stops on context cancel", func(st *testing.T) {
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(st, err, context.Canceled)
		case <-time.After(2 * time.Second):
			st.Fatal("server did not stop")
		}
	})
}
