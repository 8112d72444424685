package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kinbridge/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "kinbridge",
		Short:         "Kinbridge bridges a record store to chat, push and automation webhooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(cfg),
		newConfigCmd(cfg),
		newAttachCmd(cfg, &jsonOutput),
		newResolveCmd(cfg, &jsonOutput),
		newJournalCmd(cfg, &jsonOutput),
	)

	return cmd
}
