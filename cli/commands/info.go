package commands

import (
	"fmt"
	"net/netip"

	app_info "github.com/robgonnella/pmtud/internal/app-info"
	"github.com/robgonnella/pmtud/internal/util"
	"github.com/spf13/cobra"
)

// address used to look up the default route when no target is given
const defaultRouteTarget = "8.8.8.8"

func info(props *CommandProps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [target]",
		Short: "Print app info and the local interface used to reach target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := defaultRouteTarget

			if len(args) == 1 {
				target = args[0]
			}

			dst, err := netip.ParseAddr(target)

			if err != nil {
				return err
			}

			networkInfo, err := util.GetNetworkInfo(dst)

			if err != nil {
				return err
			}

			fmt.Fprintf(
				props.Out,
				"%s: %s\n\nhostname:  %s\ntarget:    %s\ninterface: %s\nsource:    %s\nnetwork:   %s\nmtu:       %d\n",
				app_info.NAME,
				app_info.VERSION,
				networkInfo.Hostname,
				networkInfo.Destination,
				networkInfo.Interface.Name,
				networkInfo.UserIP,
				networkInfo.Cidr,
				networkInfo.MTU(),
			)

			return nil
		},
	}

	return cmd
}
