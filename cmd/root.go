package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/output"
	"github.com/bimmerbailey/logsplit/internal/parser"
	"github.com/bimmerbailey/logsplit/internal/preprocess"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "logsplit",
	Short: "Build log sessions and train/test splits for anomaly detection",
	Long: `Logsplit turns structured system logs into labeled sessions and
partitions them into training and test sets for log anomaly detection.

Sessions are built per block id (HDFS), per 30 second window (OpenStack)
or as one labeled sequence (BGL). Splits are written to a directory and
can be inspected later.

Examples:
  logsplit structure --layout hdfs --out HDFS.log_structured.csv HDFS.log
  logsplit split --dataset hdfs --log-file HDFS.log_structured.csv --label-file anomaly_label.csv --out hdfs_split
  logsplit stats hdfs_split`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.logsplit.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".logsplit")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOGSPLIT")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setDefaults registers default values. Values set explicitly or read from
// a config file take precedence.
func setDefaults() {
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("color", "auto")
	viper.SetDefault("timestamp_formats", parser.DefaultTimestampFormats)
	viper.SetDefault("partition.test_ratio", 0.2)
	viper.SetDefault("partition.train_anomaly_ratio", 1.0)
	viper.SetDefault("structure.layout", "hdfs")
	viper.SetDefault("watch.debounce", "500ms")
	viper.SetDefault("redaction.patterns", preprocess.DefaultPatterns())
}

// loadConfig decodes the merged flag, env and file settings.
func loadConfig() (*config.Config, error) {
	setDefaults()
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes progress to stderr. Verbose mode adds debug records.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// newWriter builds an output writer for the configured format and color mode.
func newWriter(cmd *cobra.Command, format string) (*output.Writer, error) {
	mode, err := output.ParseColorMode(viper.GetString("color"))
	if err != nil {
		return nil, err
	}
	return output.New(cmd.OutOrStdout(), output.ParseFormat(format)).WithColor(mode), nil
}
