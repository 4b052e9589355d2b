package main

import (
	"fmt"
	"os"

	"github.com/richard-senior/gridiron/internal/logger"
	"github.com/richard-senior/gridiron/pkg/util/gridiron"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridiron",
		Short: "NFL play-by-play fetching, covariance and k-NN play prediction",
		Long: `gridiron downloads SportRadar NFL play-by-play feeds into a local
SQLite store and runs simple numeric analysis over the stored plays:
sample covariance between two columns, and k-nearest-neighbour
prediction of a label (by default the play type) for a game situation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			gridiron.CloseDatabase()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log", "c", "Log output: c (console), f (file) or b (both)")
	rootCmd.PersistentFlags().String("log-file", logger.DefaultLogPath, "Log file used by --log f|b")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newFetchCmd(),
		newPredictCmd(),
		newCovarianceCmd(),
	)
	return rootCmd
}

// setup configures logging and loads the configuration file, if any
func setup(cmd *cobra.Command) error {
	logOut, _ := cmd.Flags().GetString("log")
	logFile, _ := cmd.Flags().GetString("log-file")
	debug, _ := cmd.Flags().GetBool("debug")
	configPath, _ := cmd.Flags().GetString("config")

	if len(logOut) != 1 {
		return fmt.Errorf("invalid --log value %q", logOut)
	}
	if err := logger.SetLogOutput(rune(logOut[0]), logFile); err != nil {
		return err
	}
	logger.SetShowDateTime(logOut[0] != 'c')
	// console output is for results; keep chatter to warnings unless asked
	switch {
	case debug:
		logger.SetLevel(logger.DEBUG)
	case logOut[0] == 'c':
		logger.SetLevel(logger.WARN)
	}

	if configPath != "" {
		cfg, err := gridiron.LoadConfig(configPath)
		if err != nil {
			return err
		}
		gridiron.UpdateConfig(cfg)
		logger.Info("Loaded configuration", configPath)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridiron version %s\n", version)
		},
	}
}
