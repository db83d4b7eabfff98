package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/dataset"
	"github.com/bimmerbailey/logsplit/internal/metrics"
	"github.com/bimmerbailey/logsplit/internal/output"
	"github.com/bimmerbailey/logsplit/internal/partition"
	"github.com/bimmerbailey/logsplit/internal/store"
	"github.com/bimmerbailey/logsplit/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var splitCmd = &cobra.Command{
	Use:   "split [flags]",
	Short: "Build sessions from a structured log and split them into train and test sets",
	Long: `Read a structured log, group its events into labeled sessions and
partition them into training and test sets. The split is written to the
output directory as session_train.json.zst, session_test.json.zst and
data_desc.yaml.

Datasets:
  hdfs       sessions per block id, labels from a BlockId,Label table
  openstack  sessions per 30 second window, labels from a Datetime,Label table
  bgl        one sequence split by rows, labels inline ("-" is normal)

For bgl, --filter-normal is on unless it is set explicitly, e.g.
--filter-normal=false.

Examples:
  logsplit split --dataset hdfs --log-file HDFS.log_structured.csv --label-file anomaly_label.csv --out hdfs_split
  logsplit split --dataset openstack --log-file openstack.csv --label-file labels.csv --random-partition --seed 42 --out os_split
  logsplit split --dataset bgl --log-file BGL.log_structured.csv --train-ratio 0.8 --test-ratio 0.2 --out bgl_split`,
	Args: cobra.NoArgs,
	RunE: runSplit,
}

func init() {
	f := splitCmd.Flags()
	f.String("dataset", "", "dataset shape (hdfs, openstack, bgl)")
	f.String("log-file", "", "structured log CSV")
	f.String("label-file", "", "label table CSV (hdfs, openstack)")
	f.String("id-pattern", "", "block id regex for hdfs (default blk_-?\\d+)")
	f.StringP("out", "o", "", "directory to write the split to")
	f.Float64("train-ratio", 0, "head fraction used for training (default 1 - test-ratio)")
	f.Float64("test-ratio", 0.2, "tail fraction used for testing")
	f.Float64("train-anomaly-ratio", 1, "probability of keeping each anomalous training item")
	f.Bool("random-partition", false, "shuffle before splitting")
	f.Bool("filter-normal", false, "drop normal test rows with templates unseen in training (default on for bgl)")
	f.Uint64("seed", 0, "random seed (0 picks one and records it)")
	f.String("metrics-file", "", "write partition gauges to this Prometheus textfile")
	f.Bool("watch", false, "re-run the split when the input files change")
	f.String("debounce", "500ms", "quiet period before re-running in watch mode")
	f.Bool("follow-rotate", false, "keep watching when an input file is rotated")

	bindings := map[string]string{
		"dataset.name":                  "dataset",
		"dataset.log_file":              "log-file",
		"dataset.label_file":            "label-file",
		"dataset.id_pattern":            "id-pattern",
		"output.dir":                    "out",
		"partition.train_ratio":         "train-ratio",
		"partition.test_ratio":          "test-ratio",
		"partition.train_anomaly_ratio": "train-anomaly-ratio",
		"partition.random_partition":    "random-partition",
		"partition.filter_normal":       "filter-normal",
		"seed":                          "seed",
		"metrics.file":                  "metrics-file",
		"watch.enabled":                 "watch",
		"watch.debounce":                "debounce",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	applyDatasetDefaults(cfg)

	logger := newLogger(cfg.Verbose)
	writer, err := newWriter(cmd, cfg.Format)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if cfg.Metrics.File != "" {
		rec = metrics.NewRecorder()
	}

	job := func(context.Context) error {
		return splitOnce(cfg, writer, rec, logger)
	}

	if !cfg.Watch.Enabled {
		return job(cmd.Context())
	}

	debounce, err := config.ParseDuration(cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("invalid --debounce value: %w", err)
	}
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")

	paths := []string{cfg.Dataset.LogFile}
	if cfg.Dataset.LabelFile != "" {
		paths = append(paths, cfg.Dataset.LabelFile)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger.Info("watching inputs", "files", paths, "debounce", debounce)
	return watch.New(watch.Options{
		Paths:        paths,
		Debounce:     debounce,
		FollowRotate: followRotate,
		Run:          job,
		Logger:       logger,
	}).Run(ctx)
}

// applyDatasetDefaults fills per-dataset defaults the user left unset.
// BGL test rows with templates never seen in training are dropped unless
// partition.filter_normal is given by flag, env or config file.
func applyDatasetDefaults(cfg *config.Config) {
	if cfg.Dataset.Name == "bgl" && !viper.IsSet("partition.filter_normal") {
		cfg.Partition.FilterNormal = true
	}
}

// splitOnce loads, partitions and saves one split.
func splitOnce(cfg *config.Config, writer *output.Writer, rec *metrics.Recorder, logger *slog.Logger) error {
	kind, err := dataset.Lookup(cfg.Dataset.Name)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	opts := dataset.Options{
		LogFile:   cfg.Dataset.LogFile,
		LabelFile: cfg.Dataset.LabelFile,
		IDPattern: cfg.Dataset.IDPattern,
		Partition: partitionOptions(cfg.Partition),
	}

	logger.Debug("loading dataset", "dataset", kind.Name, "log_file", opts.LogFile, "seed", seed)
	res, err := dataset.Load(kind.Name, opts, rng, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", kind.Name, err)
	}

	desc := store.NewDescriptor(kind.Name, string(kind.Strategy))
	desc.LogFile = opts.LogFile
	desc.LabelFile = opts.LabelFile
	desc.TrainRatio = 1 - cfg.Partition.TestRatio
	if opts.Partition.TrainRatio != nil {
		desc.TrainRatio = *opts.Partition.TrainRatio
	}
	desc.TestRatio = cfg.Partition.TestRatio
	desc.TrainAnomalyRatio = cfg.Partition.TrainAnomalyRatio
	desc.RandomPartition = cfg.Partition.RandomPartition
	desc.FilterUnseen = cfg.Partition.FilterNormal
	desc.Seed = seed
	desc.Stats = res.Stats

	if err := store.Save(cfg.Output.Dir, res.Train, res.Test, desc); err != nil {
		return fmt.Errorf("failed to save split: %w", err)
	}
	logger.Info("split saved", "dir", cfg.Output.Dir, "run_id", desc.RunID)

	if rec != nil {
		rec.Observe(kind.Name, res.Stats)
		if err := rec.WriteTextfile(cfg.Metrics.File); err != nil {
			return err
		}
	}

	return writer.WriteSplit(output.SplitResult{
		RunID:   desc.RunID,
		Dataset: kind.Name,
		Dir:     cfg.Output.Dir,
		Stats:   res.Stats,
	})
}

// partitionOptions maps the config section onto partition.Options. A zero
// train ratio means "the rest after the test share".
func partitionOptions(pc config.PartitionConfig) partition.Options {
	opts := partition.Options{
		TestRatio:         pc.TestRatio,
		TrainAnomalyRatio: pc.TrainAnomalyRatio,
		RandomPartition:   pc.RandomPartition,
		FilterUnseen:      pc.FilterNormal,
	}
	if pc.TrainRatio > 0 {
		opts.TrainRatio = partition.Ratio(pc.TrainRatio)
	}
	return opts
}
