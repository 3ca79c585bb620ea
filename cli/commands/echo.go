package commands

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/robgonnella/pmtud/internal/echo"
	"github.com/spf13/cobra"
)

// creates and returns the "echo" command
func echoServer(props *CommandProps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo <port>",
		Short: "Run a UDP echo server for UDP mode discovery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.ParseUint(args[0], 10, 16)

			if err != nil {
				return err
			}

			server, err := echo.Listen(net.JoinHostPort("", strconv.FormatUint(port, 10)))

			if err != nil {
				return err
			}

			defer server.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)

			defer stop()

			if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	return cmd
}
