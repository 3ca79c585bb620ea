package commands

import (
	"fmt"

	app_info "github.com/robgonnella/pmtud/internal/app-info"
	"github.com/spf13/cobra"
)

func version(props *CommandProps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(
				props.Out,
				"%s: %s\n",
				app_info.NAME,
				app_info.VERSION,
			)
		},
	}

	return cmd
}
