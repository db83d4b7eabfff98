package cmd

import (
	"fmt"
	"time"

	"github.com/bimmerbailey/logsplit/internal/analyzer"
	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/output"
	"github.com/bimmerbailey/logsplit/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats [flags] <dir>",
	Short: "Show statistics of a saved split",
	Long: `Display a summary of a split directory: session counts, anomaly
ratios, sequence lengths, top templates and how many test templates never
occur in training.

Examples:
  logsplit stats hdfs_split
  logsplit stats --format json --top 5 hdfs_split
  logsplit stats --window 10m openstack_split
  logsplit stats --plain data/hdfs`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Int("top", 10, "number of top templates to show")
	statsCmd.Flags().String("window", "", "group test sessions into time windows (e.g., 5m, 1h)")
	statsCmd.Flags().Bool("plain", false, "read hdfs_train/hdfs_test_normal/hdfs_test_abnormal sequence files")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	dir := args[0]
	topN, _ := cmd.Flags().GetInt("top")
	windowStr, _ := cmd.Flags().GetString("window")
	plain, _ := cmd.Flags().GetBool("plain")

	var window time.Duration
	if windowStr != "" {
		var err error
		window, err = config.ParseDuration(windowStr)
		if err != nil {
			return fmt.Errorf("invalid --window value: %w", err)
		}
		if window <= 0 {
			return fmt.Errorf("window duration must be positive")
		}
	}

	logger := newLogger(viper.GetBool("verbose"))

	var (
		split *store.Split
		err   error
	)
	if plain {
		split, err = store.LoadPlainText(dir, store.DefaultPlainTextOptions(), logger)
	} else {
		split, err = store.LoadSessions(dir, logger)
	}
	if err != nil {
		return err
	}

	anlz := analyzer.New()
	report := output.Report{
		Dir:   dir,
		Split: anlz.CompareSplit(split.Train, split.Test, topN),
	}
	if split.Descriptor != nil {
		report.Dataset = split.Descriptor.Dataset
		report.RunID = split.Descriptor.RunID
	}
	if window > 0 {
		report.Windows = anlz.AnalyzeByWindow(split.Test, window)
		if len(report.Windows) == 0 {
			logger.Warn("no datetime session ids for window analysis", "dir", dir)
		}
	}

	writer, err := newWriter(cmd, viper.GetString("format"))
	if err != nil {
		return err
	}
	return writer.WriteReport(report)
}
