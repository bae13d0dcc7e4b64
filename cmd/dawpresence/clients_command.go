package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dawpresence/internal/presence"
)

func newClientsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clients [host-application-name]",
		Short: "List host to presence client mappings or resolve one host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := presence.ClientTable(ctx.configValue().Clients)
			stdout := cmd.OutOrStdout()

			if len(args) == 1 {
				id, err := table.Lookup(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, id)
				return nil
			}

			writeClientTable(stdout, ctx.configValue())
			return nil
		},
	}
}
