package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dawpresence/internal/config"
	"dawpresence/internal/daemonctl"
	"dawpresence/internal/daemonrun"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "dawpresenced <host-application-name>",
		Short:         "Relay presence events from an audio host to Discord",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := ""
			if len(args) > 0 {
				host = args[0]
			}

			cfg, _, _, err := config.Load(resolveConfigPath(configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return daemonrun.Run(cmd.Context(), cfg, host, daemonrun.Options{
				LogLevel: logLevel,
				Console:  cmd.OutOrStdout(),
			})
		},
	}

	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	return rootCmd
}

// resolveConfigPath prefers the flag, then the path handed down by the
// spawning emitter.
func resolveConfigPath(flagValue string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(daemonctl.ConfigEnv))
}
