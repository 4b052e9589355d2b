package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/richard-senior/gridiron/internal/logger"
	"github.com/richard-senior/gridiron/pkg/util/gridiron"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch GAME_ID...",
		Short: "Download play-by-play for games and store their plays",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *gridiron.Config
			if key, _ := cmd.Flags().GetString("api-key"); key != "" {
				cfg.APIKey = key
			}

			ds := gridiron.NewSportradarDatasource(&cfg)
			plays, fetchErr := ds.FetchPlays(cmd.Context(), args)
			if len(plays) > 0 {
				if err := gridiron.SavePlays(plays); err != nil {
					return err
				}
			}
			if fetchErr != nil {
				logger.Error("Fetch stopped early", fetchErr)
			}

			counts := map[string]int{}
			for _, p := range plays {
				counts[p.GameID]++
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"Game", "Plays"})
			for _, id := range args {
				tw.Append([]string{id, strconv.Itoa(counts[id])})
			}
			tw.SetFooter([]string{"Total", strconv.Itoa(len(plays))})
			tw.Render()

			if fetchErr != nil {
				return fmt.Errorf("fetch incomplete: %w", fetchErr)
			}
			return nil
		},
	}
	cmd.Flags().String("api-key", "", "SportRadar API key (defaults to config or "+gridiron.APIKeyEnv+")")
	return cmd
}
