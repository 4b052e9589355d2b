package main

import (
	"fmt"

	"github.com/richard-senior/gridiron/pkg/util/gridiron"
	"github.com/spf13/cobra"
)

func newCovarianceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covariance COLUMN_A COLUMN_B",
		Short: "Sample covariance between two numeric play columns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, _ := cmd.Flags().GetStringSlice("game")
			plays, err := gridiron.LoadPlays(games...)
			if err != nil {
				return err
			}
			c, err := gridiron.PlaysToTable(plays).Covariance(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cov(%s, %s) = %g over %d plays\n", args[0], args[1], c, len(plays))
			return nil
		},
	}
	cmd.Flags().StringSlice("game", nil, "Restrict to these game ids")
	return cmd
}
