package commands

import (
	"errors"
	"io/fs"
	"os"

	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runtime paths removed by "clear"
var clearable = []string{"config-file", "log-file"}

/**
 * Command to remove config and log files
 */
func clear() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clears config and log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()

			for _, key := range clearable {
				file, ok := viper.Get(key).(string)

				if !ok || file == "" {
					continue
				}

				if err := os.Remove(file); err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						continue
					}

					return err
				}

				log.Info().Str("file", file).Msgf("removed %s", key)
			}

			return nil
		},
	}

	return cmd
}
