package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/richard-senior/gridiron/pkg/util"
	"github.com/richard-senior/gridiron/pkg/util/gridiron"
	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict --query down=3,yards_to_go=2,...",
		Short: "Predict a label for a game situation from the k nearest stored plays",
		RunE: func(cmd *cobra.Command, args []string) error {
			features, _ := cmd.Flags().GetStringSlice("features")
			k, _ := cmd.Flags().GetInt("k")
			label, _ := cmd.Flags().GetString("label")
			rawQuery, _ := cmd.Flags().GetStringToString("query")
			games, _ := cmd.Flags().GetStringSlice("game")

			if len(features) == 0 {
				features = gridiron.Config.Features
			}
			if !cmd.Flags().Changed("k") {
				k = gridiron.Config.K
			}
			if k < 1 {
				return fmt.Errorf("%w: k must be at least 1, got %d", gridiron.ErrInvalidInput, k)
			}
			if label == "" {
				label = gridiron.Config.LabelColumn
			}

			query, err := parseQuery(rawQuery)
			if err != nil {
				return err
			}

			plays, err := gridiron.LoadPlays(games...)
			if err != nil {
				return err
			}
			if len(plays) == 0 {
				return fmt.Errorf("no stored plays; run 'gridiron fetch' first")
			}

			set, err := gridiron.PlaysToTable(plays).TrainingSet(features, label)
			if err != nil {
				return err
			}
			nearest, err := gridiron.Neighbours(features, set, query, k)
			if err != nil {
				return err
			}
			prediction := gridiron.Vote(nearest)

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"Rank", "Game", "Play", "Distance", label})
			for i, nb := range nearest {
				p := plays[nb.Index]
				tw.Append([]string{
					strconv.Itoa(i + 1),
					p.GameID,
					p.ID,
					strconv.FormatFloat(nb.Distance, 'f', 3, 64),
					nb.Label,
				})
			}
			tw.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "Prediction: %s\n", prediction)
			return nil
		},
	}
	cmd.Flags().StringSlice("features", nil, "Feature columns (defaults to config)")
	cmd.Flags().Int("k", 0, "Number of neighbours (defaults to config)")
	cmd.Flags().String("label", "", "Label column (defaults to config)")
	cmd.Flags().StringToString("query", nil, "Situation to classify, e.g. down=3,yards_to_go=2")
	cmd.Flags().StringSlice("game", nil, "Restrict training plays to these game ids")
	cmd.MarkFlagRequired("query")
	return cmd
}

// parseQuery converts name=value flag pairs into a query record
func parseQuery(raw map[string]string) (gridiron.Record, error) {
	query := make(gridiron.Record, len(raw))
	for name, value := range raw {
		v, err := util.GetAsFloat(value)
		if err != nil {
			return nil, fmt.Errorf("query value for %s: %w", strings.TrimSpace(name), err)
		}
		query[strings.TrimSpace(name)] = v
	}
	return query, nil
}
