// Package config describes datasets in YAML so training runs can be
// configured without code changes.
//
// A minimal configuration:
//
//	family: amazon
//	root: data/amazon
//	split: train
//	size: 256
//	crop_size: 128
//	coord: true
//	keys: [image]
//
// A dataset may instead list sub-datasets under concat, which are chained
// and tagged with their position as "class". Keys of the concat filter the
// chained examples; crop_size and coord only apply to the concat itself.
package config

import (
	"os"

	"github.com/Noofbiz/objectData/datasets"
	"github.com/Noofbiz/objectData/manifest"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is used when loader.batch_size is not set.
const DefaultBatchSize = 32

// Config describes one dataset.
type Config struct {
	Name string `yaml:"name"`

	// Family selects the directory layout: "amazon", "shapenet", "ffhq" or
	// "plain" (manifest lists image files).
	Family string `yaml:"family"`
	Root   string `yaml:"root"`

	// Manifest overrides the family's manifest for the split. Relative to
	// Root unless absolute.
	Manifest string `yaml:"manifest"`
	Split    string `yaml:"split"`

	Size     int      `yaml:"size"`
	CropSize int      `yaml:"crop_size"`
	Coord    bool     `yaml:"coord"`
	Keys     []string `yaml:"keys"`
	Seed     int64    `yaml:"seed"`

	Concat []Config `yaml:"concat"`

	Loader LoaderConfig `yaml:"loader"`
}

// LoaderConfig maps to datasets.LoaderOptions.
type LoaderConfig struct {
	BatchSize     int  `yaml:"batch_size"`
	Shuffle       bool `yaml:"shuffle"`
	Infinite      bool `yaml:"infinite"`
	DropRemainder bool `yaml:"drop_remainder"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "config %q", path)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize fills in defaults and validates. Configurations built in code,
// rather than parsed, should call it before Build.
func (c *Config) Normalize() error {
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Split == "" {
		c.Split = datasets.Train.String()
	}
	if c.Loader.BatchSize == 0 {
		c.Loader.BatchSize = DefaultBatchSize
	}
	if c.Name == "" {
		prefix := c.Family
		if len(c.Concat) > 0 {
			prefix = "concat"
		}
		c.Name = prefix + "-" + c.Split
	}
	for i := range c.Concat {
		if c.Concat[i].Split == "" {
			c.Concat[i].Split = c.Split
		}
	}
}

// Validate checks the configuration for values that cannot produce a dataset.
func (c *Config) Validate() error {
	if _, err := datasets.ParseSplit(c.Split); err != nil {
		return err
	}
	if c.Size < 0 || c.CropSize < 0 {
		return errors.Errorf("size (%d) and crop_size (%d) must not be negative", c.Size, c.CropSize)
	}
	if c.Size > 0 && c.CropSize > c.Size {
		return errors.Errorf("crop_size %d larger than size %d", c.CropSize, c.Size)
	}
	if c.Coord && c.CropSize == 0 {
		return errors.New("coord requires crop_size")
	}
	if c.Loader.BatchSize < 0 {
		return errors.Errorf("invalid batch_size %d", c.Loader.BatchSize)
	}
	if len(c.Concat) > 0 {
		for i := range c.Concat {
			if len(c.Concat[i].Concat) > 0 {
				return errors.Errorf("concat[%d]: nested concat is not supported", i)
			}
			if c.Concat[i].CropSize > 0 || c.Concat[i].Coord {
				return errors.Errorf("concat[%d]: crop_size and coord are set on the concat, not on its items", i)
			}
			if err := c.Concat[i].Validate(); err != nil {
				return errors.WithMessagef(err, "concat[%d]", i)
			}
		}
		return nil
	}
	if _, err := c.ResolveFamily(); err != nil {
		return err
	}
	return nil
}

// ResolveFamily resolves Family, Root and Manifest into a datasets.Family.
func (c *Config) ResolveFamily() (datasets.Family, error) {
	var f datasets.Family
	if c.Family == "plain" {
		f = datasets.Family{Name: "plain", Expander: manifest.Identity{}}
	} else {
		known, ok := datasets.Families[c.Family]
		if !ok {
			return f, errors.Errorf("unknown family %q", c.Family)
		}
		f = known
	}
	if c.Root != "" {
		f = f.WithRoot(c.Root)
	}
	if c.Manifest != "" {
		f.TrainManifest = c.Manifest
		f.ValidationManifest = c.Manifest
	}
	if f.Root == "" || f.TrainManifest == "" {
		return f, errors.Errorf("family %q needs root and manifest", c.Family)
	}
	return f, nil
}

// Build opens the configured dataset.
func (c *Config) Build() (datasets.Source, error) {
	split, err := datasets.ParseSplit(c.Split)
	if err != nil {
		return nil, err
	}

	var src datasets.Source
	if len(c.Concat) > 0 {
		subs := make([]datasets.Source, len(c.Concat))
		for i := range c.Concat {
			if subs[i], err = c.Concat[i].Build(); err != nil {
				return nil, errors.WithMessagef(err, "concat[%d]", i)
			}
		}
		src = datasets.NewConcatWithIndex(subs...)
		if c.Keys != nil {
			src = datasets.NewObjects(src, c.Keys)
		}
	} else {
		f, err := c.ResolveFamily()
		if err != nil {
			return nil, err
		}
		if src, err = f.Open(split, c.Size, c.Keys); err != nil {
			return nil, err
		}
	}

	if c.CropSize == 0 {
		return src, nil
	}
	return datasets.NewAugmented(src, split, datasets.AugmentOptions{
		CropSize: c.CropSize,
		Coord:    c.Coord,
		Seed:     c.Seed,
	}), nil
}

// LoaderOptions returns the loader settings.
func (c *Config) LoaderOptions() datasets.LoaderOptions {
	return datasets.LoaderOptions{
		BatchSize:     c.Loader.BatchSize,
		Shuffle:       c.Loader.Shuffle,
		Seed:          c.Seed,
		Infinite:      c.Loader.Infinite,
		DropRemainder: c.Loader.DropRemainder,
	}
}

// NewLoader builds the dataset and wraps it in a datasets.Loader.
func (c *Config) NewLoader() (*datasets.Loader, error) {
	src, err := c.Build()
	if err != nil {
		return nil, err
	}
	return datasets.NewLoader(c.Name, src, c.LoaderOptions()), nil
}
