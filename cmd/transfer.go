package cmd

import (
	"context"

	"eeapi/internal/types"

	"github.com/spf13/cobra"
)

func newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <local-file> <destination>",
		Short: "Push one file to the execution target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				res, err := a.agent.Transfer(ctx, types.TransferRequest{SourcePath: args[0], DestinationPath: args[1]})
				if err != nil {
					return err
				}
				return newRenderer().transfer(res)
			})
		},
	}
}
