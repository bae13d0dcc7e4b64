package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dawpresence/internal/channel"
	"dawpresence/internal/frame"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "send <details> <state>",
		Short: "Send one presence frame to a running relay daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			ev := frame.Event{Details: args[0], State: args[1]}
			if _, err := frame.Encode(ev); err != nil {
				return err
			}

			conn, err := channel.Dial(cmd.Context(), cfg.ChannelPath(), cfg.ConnectTimeout())
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			defer conn.Close()

			if err := frame.NewWriter(conn, cfg.WriteTimeout(), cfg.Channel.MaxFrameBytes).Write(ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %q / %q\n", ev.Details, ev.State)
			return nil
		},
	}
}
