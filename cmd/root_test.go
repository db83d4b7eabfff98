package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bimmerbailey/logsplit/internal/parser"
	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if cfg.Partition.TestRatio != 0.2 || cfg.Partition.TrainAnomalyRatio != 1 {
		t.Errorf("unexpected partition defaults: %+v", cfg.Partition)
	}
	if cfg.Structure.Layout != "hdfs" {
		t.Errorf("Structure.Layout = %q, want hdfs", cfg.Structure.Layout)
	}
	if len(cfg.TimestampFormats) != len(parser.DefaultTimestampFormats) {
		t.Errorf("TimestampFormats = %v", cfg.TimestampFormats)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	viper.Reset()
	viper.Set("format", "json")
	viper.Set("dataset.name", "BGL")
	viper.Set("partition.filter_normal", true)
	viper.Set("watch.debounce", "2s")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Format != "json" || cfg.Dataset.Name != "BGL" || !cfg.Partition.FilterNormal {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Watch.Debounce != "2s" {
		t.Errorf("Watch.Debounce = %q", cfg.Watch.Debounce)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(out.String(), "logsplit dev") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"split": false, "stats": false, "structure": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
