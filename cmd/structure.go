package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/parser"
	"github.com/bimmerbailey/logsplit/internal/preprocess"
	"github.com/bimmerbailey/logsplit/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var structureCmd = &cobra.Command{
	Use:   "structure [flags] <file>...",
	Short: "Turn raw log files into a structured log with event templates",
	Long: `Split raw log lines by a header layout, mine event templates with
Drain and write a structured CSV (LineId, the layout headers, EventId,
EventTemplate) that the split command reads. A second CSV lists every
template with its occurrence count.

Layouts are one of ` + strings.Join(parser.LayoutNames(), ", ") + `, a custom header
string such as "<Date> <Time> <Level> <Component>: <Content>", or "generic".
The generic layout accepts JSON lines and plain lines with a leading
timestamp, and writes Date, Time and Level columns so the result can be
split by time bucket.

Examples:
  logsplit structure --layout hdfs --out HDFS.log_structured.csv HDFS.log
  logsplit structure --layout "<Date> <Time> <Level>: <Content>" --out app.csv "logs/*.log"
  logsplit structure --layout generic --out app_structured.csv app.jsonl
  logsplit structure --redact --since "2017-05-16 00:00:00" --layout openstack --out os.csv openstack.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStructure,
}

func init() {
	f := structureCmd.Flags()
	f.String("layout", "hdfs", "built-in layout name, generic, or custom <Header> layout")
	f.StringP("out", "o", "", "structured CSV path (default <first input>_structured.csv)")
	f.String("templates", "", "templates CSV path (default <out>_templates.csv)")
	f.String("since", "", "only include lines since timestamp")
	f.String("until", "", "only include lines until timestamp")
	f.Bool("redact", false, "redact sensitive values in Content (block ids are kept)")
	f.Int("top", 10, "number of templates to show")
	f.Int("depth", 4, "Drain parse tree depth")
	f.Float64("sim-threshold", 0.5, "Drain similarity threshold")
	f.Int("max-children", 100, "Drain maximum children per node")

	_ = viper.BindPFlag("structure.layout", f.Lookup("layout"))
	_ = viper.BindPFlag("structure.depth", f.Lookup("depth"))
	_ = viper.BindPFlag("structure.sim_threshold", f.Lookup("sim-threshold"))
	_ = viper.BindPFlag("structure.max_children", f.Lookup("max-children"))
	_ = viper.BindPFlag("redaction.enabled", f.Lookup("redact"))

	rootCmd.AddCommand(structureCmd)
}

func runStructure(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")
	templatesPath, _ := cmd.Flags().GetString("templates")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	topN, _ := cmd.Flags().GetInt("top")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStructure(); err != nil {
		return err
	}
	if cfg.Redaction.Enabled {
		if err := preprocess.ValidatePatterns(cfg.Redaction.Patterns); err != nil {
			return err
		}
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	layout, err := parser.ResolveLayout(cfg.Structure.Layout)
	if err != nil {
		return fmt.Errorf("invalid --layout: %w", err)
	}

	window, err := config.ParseWindow(since, until)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(files[0], filepath.Ext(files[0])) + "_structured.csv"
	}
	if templatesPath == "" {
		templatesPath = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_templates.csv"
	}

	logger := newLogger(cfg.Verbose)
	opts := []preprocess.Option{
		preprocess.WithLogger(logger),
		preprocess.WithTimestampFormats(cfg.TimestampFormats),
		preprocess.WithWindow(window),
		preprocess.WithDrainConfig(preprocess.DrainConfig{
			Depth:        cfg.Structure.Depth,
			SimThreshold: cfg.Structure.SimThreshold,
			MaxChildren:  cfg.Structure.MaxChildren,
		}),
	}
	if cfg.Redaction.Enabled {
		opts = append(opts, preprocess.WithRedaction(cfg.Redaction.Patterns, session.DefaultIDPattern))
	}

	s := preprocess.New(layout, opts...)
	for _, file := range files {
		if err := s.AddFile(file); err != nil {
			return err
		}
	}

	if err := writeFile(outPath, s.WriteCSV); err != nil {
		return fmt.Errorf("failed to write structured log: %w", err)
	}
	if err := writeFile(templatesPath, s.WriteTemplates); err != nil {
		return fmt.Errorf("failed to write templates: %w", err)
	}

	writer, err := newWriter(cmd, cfg.Format)
	if err != nil {
		return err
	}
	return writer.WriteStructure(outPath, s.Stats(), s.Templates(), topN)
}

// writeFile creates path and streams fn's output into it.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
