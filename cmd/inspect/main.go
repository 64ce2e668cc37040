// Command inspect looks into the image datasets before they are used for
// training: how many examples a manifest produces, their value ranges, a
// visual preview and the throughput of the batching loader.
//
// Usage:
//
//	go run ./cmd/inspect count --family amazon --root data/amazon --split val
//	go run ./cmd/inspect stats --config objects.yaml -n 500
//	go run ./cmd/inspect preview --config objects.yaml --out plots
//	go run ./cmd/inspect yield --config objects.yaml --batches 20 -v=2
package main

import (
	"flag"
	"os"

	"github.com/Noofbiz/objectData/config"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// datasetFlags hold either the path of a YAML config or the quick flags used
// to build one.
type datasetFlags struct {
	configPath string

	family   string
	root     string
	manifest string
	split    string
	size     int
	cropSize int
	coord    bool
	keys     []string
	seed     int64

	batchSize int
	shuffle   bool
}

var flags datasetFlags

// loadConfig returns the configuration selected by the flags.
func (f *datasetFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.Load(f.configPath)
	}
	cfg := &config.Config{
		Family:   f.family,
		Root:     f.root,
		Manifest: f.manifest,
		Split:    f.split,
		Size:     f.size,
		CropSize: f.cropSize,
		Coord:    f.coord,
		Keys:     f.keys,
		Seed:     f.seed,
		Loader: config.LoaderConfig{
			BatchSize: f.batchSize,
			Shuffle:   f.shuffle,
		},
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inspect",
		Short:         "Inspect manifest based image datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML dataset configuration; overrides the quick flags below")
	pf.StringVar(&flags.family, "family", "amazon", "dataset family: amazon, shapenet, ffhq or plain")
	pf.StringVar(&flags.root, "root", "", "dataset root directory (family default when empty)")
	pf.StringVar(&flags.manifest, "manifest", "", "manifest file, relative to root (family default when empty)")
	pf.StringVar(&flags.split, "split", "train", "split: train or val")
	pf.IntVar(&flags.size, "size", 256, "rescale and center crop images to size x size (0 keeps the original size)")
	pf.IntVar(&flags.cropSize, "crop-size", 0, "crop size applied after loading (random for train, centered for val)")
	pf.BoolVar(&flags.coord, "coord", false, "add the coord grid (requires --crop-size)")
	pf.StringSliceVar(&flags.keys, "keys", nil, "keys to keep in every example (all when empty)")
	pf.Int64Var(&flags.seed, "seed", 0, "random seed for crops and shuffling (0 seeds from the clock)")
	pf.IntVar(&flags.batchSize, "batch-size", config.DefaultBatchSize, "loader batch size")
	pf.BoolVar(&flags.shuffle, "shuffle", false, "shuffle the loader")

	// klog flags (-v, --logtostderr, ...) live on the same flag set.
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	pf.AddGoFlagSet(klogFlags)

	root.AddCommand(newCountCmd(), newStatsCmd(), newPreviewCmd(), newYieldCmd())
	return root
}

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("inspect: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
}
