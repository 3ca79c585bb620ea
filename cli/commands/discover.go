package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/robgonnella/pmtud/internal/core"
	"github.com/robgonnella/pmtud/internal/discovery"
	"github.com/robgonnella/pmtud/internal/exception"
	"github.com/robgonnella/pmtud/internal/packet"
	"github.com/spf13/cobra"
)

// creates and returns the "discover" command
func discover(props *CommandProps) *cobra.Command {
	var protocol string
	var local string
	var timeout int
	var retries int
	var minSize int
	var maxSize int
	var save bool

	cmd := &cobra.Command{
		Use:   "discover [targets...]",
		Short: "Discover the path MTU to one or more targets",
		Long: `Discover the path MTU to one or more targets.

ICMP targets are hosts, addresses, or CIDR blocks. UDP targets are
host:port and must echo datagrams back, see "pmtud echo".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := props.Out

			appCore, err := props.NewCore(func(step discovery.Step) {
				fmt.Fprintf(out, "Testing MTU size %d bytes...%s\n", step.Size, step.Describe())
			})

			if err != nil {
				return err
			}

			conf := appCore.Conf()
			flags := cmd.Flags()

			if flags.Changed("protocol") {
				conf.Protocol = protocol
			}

			if flags.Changed("local") {
				conf.Local = local
			}

			if flags.Changed("timeout") {
				conf.Timeout = timeout
			}

			if flags.Changed("retries") {
				conf.Retries = retries
			}

			if flags.Changed("min") {
				conf.MinSize = minSize
			}

			if flags.Changed("max") {
				conf.MaxSize = maxSize
			}

			if save {
				err = appCore.UpdateConfig(conf)
			} else {
				err = appCore.SetConf(conf)
			}

			if err != nil {
				return err
			}

			return appCore.Discover(args, func(r *core.Report) {
				printReport(out, r)
			})
		},
	}

	cmd.Flags().StringVarP(&protocol, "protocol", "p", "icmp", "probe protocol, icmp or udp")
	cmd.Flags().StringVarP(&local, "local", "l", "", "local address and port, e.g. 10.0.0.1:25101 or :25101")
	cmd.Flags().IntVarP(&timeout, "timeout", "t", 1000, "receive timeout in milliseconds, 0 waits forever")
	cmd.Flags().IntVarP(&retries, "retries", "r", 3, "attempts per probe size")
	cmd.Flags().IntVar(&minSize, "min", packet.MinSize, "smallest probe size in bytes")
	cmd.Flags().IntVar(&maxSize, "max", packet.MaxSize, "largest probe size in bytes")
	cmd.Flags().BoolVar(&save, "save", false, "save the effective settings to the config file")

	return cmd
}

func printReport(out io.Writer, r *core.Report) {
	if r.Found() {
		res := r.Result

		fmt.Fprintf(
			out,
			"PLPMTUD to %s: %d bytes (%d IPv4 header + %d %s header + %d data).\n",
			r.Target.Addr(),
			res.Size,
			packet.IPHeaderLen,
			res.Protocol.HeaderLen()-packet.IPHeaderLen,
			res.Protocol,
			res.PayloadLen(),
		)

		return
	}

	if errors.Is(r.Err, exception.ErrNoResponse) {
		fmt.Fprintf(out, "No reply from %s.\n", r.Target.Addr())
	}
}
