// Package config provides configuration types and helpers for logsplit.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application-wide configuration.
type Config struct {
	Format           string          `mapstructure:"format"`
	Verbose          bool            `mapstructure:"verbose"`
	Seed             uint64          `mapstructure:"seed"`
	TimestampFormats []string        `mapstructure:"timestamp_formats"`
	Dataset          DatasetConfig   `mapstructure:"dataset"`
	Partition        PartitionConfig `mapstructure:"partition"`
	Output           OutputConfig    `mapstructure:"output"`
	Metrics          MetricsConfig   `mapstructure:"metrics"`
	Redaction        RedactionConfig `mapstructure:"redaction"`
	Structure        StructureConfig `mapstructure:"structure"`
	Watch            WatchConfig     `mapstructure:"watch"`
}

// DatasetConfig locates the structured log and its label table.
type DatasetConfig struct {
	// Name selects the dataset shape: "hdfs", "openstack" or "bgl"
	Name      string `mapstructure:"name" validate:"required,oneof=hdfs openstack bgl"`
	LogFile   string `mapstructure:"log_file" validate:"required"`
	LabelFile string `mapstructure:"label_file"`
	// IDPattern overrides the block id regex for hdfs
	IDPattern string `mapstructure:"id_pattern"`
}

// PartitionConfig mirrors the partition options.
type PartitionConfig struct {
	// TrainRatio of 0 means 1 - test_ratio
	TrainRatio        float64 `mapstructure:"train_ratio" validate:"gte=0,lte=1"`
	TestRatio         float64 `mapstructure:"test_ratio" validate:"gte=0,lte=1"`
	TrainAnomalyRatio float64 `mapstructure:"train_anomaly_ratio" validate:"gte=0,lte=1"`
	RandomPartition   bool    `mapstructure:"random_partition"`
	FilterNormal      bool    `mapstructure:"filter_normal"`
}

// OutputConfig controls where a split is written.
type OutputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// File is the .prom path; empty disables the export
	File string `mapstructure:"file"`
}

// RedactionConfig holds configuration for secret redaction when
// structuring raw logs.
type RedactionConfig struct {
	// Enabled controls whether redaction is active
	Enabled bool `mapstructure:"enabled"`

	// Patterns specifies which redaction patterns to use
	// Available: ipv4, ipv6, email, api_key, aws_key, jwt, credit_card,
	// hdfs_path, bgl_node, openstack_request, uuid
	Patterns []string `mapstructure:"patterns"`
}

// StructureConfig holds the raw log layout and Drain parameters.
type StructureConfig struct {
	// Layout is a named layout ("hdfs", "openstack", "bgl") or a custom
	// header such as "<Date> <Time> <Level> <Content>"
	Layout       string  `mapstructure:"layout"`
	Depth        int     `mapstructure:"depth" validate:"gte=0"`
	SimThreshold float64 `mapstructure:"sim_threshold" validate:"gte=0,lte=1"`
	MaxChildren  int     `mapstructure:"max_children" validate:"gte=0"`
}

// WatchConfig controls re-running a split when its inputs change.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Debounce accepts Go durations plus a "d" unit, e.g. "500ms", "2s"
	Debounce string `mapstructure:"debounce"`
}

var validate = validator.New()

// Validate checks the split settings and lowercases the dataset name.
// Structure settings are checked by ValidateStructure.
func (c *Config) Validate() error {
	c.Dataset.Name = strings.ToLower(c.Dataset.Name)
	if err := validateStruct(c.Dataset); err != nil {
		return err
	}
	if err := validateStruct(c.Partition); err != nil {
		return err
	}
	if err := validateStruct(c.Output); err != nil {
		return err
	}
	if err := validate.Var(c.Format, "oneof=text json table"); err != nil {
		return fmt.Errorf("invalid config: format must be one of text, json, table (got %q)", c.Format)
	}
	if c.Dataset.needsLabels() && c.Dataset.LabelFile == "" {
		return fmt.Errorf("invalid config: dataset.label_file is required for %s", c.Dataset.Name)
	}
	if c.Watch.Debounce != "" {
		if _, err := ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid config: watch.debounce: %w", err)
		}
	}
	return nil
}

// ValidateStructure checks the Drain parameters.
func (c *Config) ValidateStructure() error {
	return validateStruct(c.Structure)
}

func (d DatasetConfig) needsLabels() bool {
	return d.Name == "hdfs" || d.Name == "openstack"
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("invalid config: %s must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("invalid config: %s is %s", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// LogLevel is a line's severity, normalized across datasets.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelUnknown
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "UNKNOWN"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelUnknown {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// MarshalJSON encodes the level by name.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*l = ParseLevel(name)
	return nil
}

// levelAliases covers the severity spellings of HDFS, OpenStack and BGL
// plus common shorthand. BGL's SEVERE and FAILURE rank as fatal.
var levelAliases = map[string]LogLevel{
	"debug": LevelDebug, "dbg": LevelDebug,
	"info": LevelInfo, "inf": LevelInfo,
	"warn": LevelWarn, "warning": LevelWarn,
	"error": LevelError, "err": LevelError,
	"fatal": LevelFatal, "critical": LevelFatal, "crit": LevelFatal,
	"severe": LevelFatal, "failure": LevelFatal,
}

// ParseLevel maps a severity token to a LogLevel, case-insensitively.
func ParseLevel(s string) LogLevel {
	if l, ok := levelAliases[strings.ToLower(s)]; ok {
		return l
	}
	return LevelUnknown
}

// LogEntry represents a single raw log line split into its header fields.
// Content is the free-text message that template extraction runs on.
type LogEntry struct {
	Raw       string            `json:"raw"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Level     LogLevel          `json:"level"`
	Content   string            `json:"content"`
	Fields    map[string]string `json:"fields,omitempty"`
	Line      int               `json:"line"`
}

// Field returns the named header field, or "" when absent.
func (e LogEntry) Field(name string) string {
	return e.Fields[name]
}
