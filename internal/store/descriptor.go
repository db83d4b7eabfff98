package store

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/logsplit/internal/partition"
)

// Descriptor records where a split came from and how it was made.
type Descriptor struct {
	RunID             string          `yaml:"run_id"`
	Dataset           string          `yaml:"dataset"`
	Strategy          string          `yaml:"strategy"`
	LogFile           string          `yaml:"log_file,omitempty"`
	LabelFile         string          `yaml:"label_file,omitempty"`
	TrainRatio        float64         `yaml:"train_ratio"`
	TestRatio         float64         `yaml:"test_ratio"`
	TrainAnomalyRatio float64         `yaml:"train_anomaly_ratio"`
	RandomPartition   bool            `yaml:"random_partition"`
	FilterUnseen      bool            `yaml:"filter_unseen"`
	Seed              uint64          `yaml:"seed"`
	Stats             partition.Stats `yaml:"stats"`
	CreatedAt         time.Time       `yaml:"created_at"`
}

// NewDescriptor returns a descriptor with a fresh run id.
func NewDescriptor(dataset, strategy string) *Descriptor {
	return &Descriptor{
		RunID:     uuid.NewString(),
		Dataset:   dataset,
		Strategy:  strategy,
		CreatedAt: time.Now().UTC(),
	}
}

// Write encodes the descriptor as YAML.
func (d *Descriptor) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// ReadDescriptor decodes a YAML descriptor.
func ReadDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadDescriptorFile reads a descriptor from path.
func ReadDescriptorFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDescriptor(f)
}
