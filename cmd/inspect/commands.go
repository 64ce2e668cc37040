package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/Noofbiz/objectData/config"
	"github.com/Noofbiz/objectData/datasets"
	"github.com/Noofbiz/objectData/manifest"
	"github.com/Noofbiz/objectData/stats"
	"github.com/dustin/go-humanize"
	mldata "github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count manifest entries and the examples they expand to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			subs := []config.Config{*cfg}
			if len(cfg.Concat) > 0 {
				subs = cfg.Concat
			}
			total := 0
			for i := range subs {
				n, err := countOne(cmd.OutOrStdout(), &subs[i])
				if err != nil {
					return err
				}
				total += n
			}
			if len(subs) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "total: %s examples\n", humanize.Comma(int64(total)))
			}
			return nil
		},
	}
}

// countOne prints the counts of a single (non concatenated) configuration.
func countOne(w io.Writer, cfg *config.Config) (int, error) {
	family, err := cfg.ResolveFamily()
	if err != nil {
		return 0, err
	}
	split, err := datasets.ParseSplit(cfg.Split)
	if err != nil {
		return 0, err
	}
	manifestPath := family.ManifestPath(split)
	entries, err := manifest.Read(manifestPath)
	if err != nil {
		return 0, err
	}
	paths, err := manifest.Expand(family.Root, entries, family.Expander)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "%s %s (%s)\n", family.Name, split, manifestPath)
	fmt.Fprintf(w, "\tentries:  %s\n", humanize.Comma(int64(len(entries))))
	fmt.Fprintf(w, "\texamples: %s\n", humanize.Comma(int64(len(paths))))
	if fixed, ok := family.Expander.(manifest.FixedViews); ok {
		fmt.Fprintf(w, "\tfactor:   %d views per entry\n", fixed.Factor())
	} else if len(entries) > 0 {
		fmt.Fprintf(w, "\tfactor:   %.2f files per entry\n", float64(len(paths))/float64(len(entries)))
	}
	return len(paths), nil
}

func newStatsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize value ranges and shapes of the first examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			src, err := cfg.Build()
			if err != nil {
				return err
			}
			if n <= 0 || n > src.Len() {
				n = src.Len()
			}
			pbar := progressbar.Default(int64(n), "Reading examples")
			summary, err := stats.Summarize(src, n, func() { _ = pbar.Add(1) })
			_ = pbar.Finish()
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg.Name, src.Len(), summary)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "num", "n", 200, "number of examples to summarize (0 for all)")
	return cmd
}

func printSummary(w io.Writer, name string, total int, s *stats.Summary) {
	fmt.Fprintf(w, "%s: %s of %s examples\n", name, humanize.Comma(int64(s.Examples)), humanize.Comma(int64(total)))
	for _, key := range s.SortedKeys() {
		ks := s.Keys[key]
		fmt.Fprintf(w, "\t%-8s values=%s mean=%.4f std=%.4f min=%.4f max=%.4f\n",
			key, humanize.Comma(int64(ks.Count)), ks.Mean, ks.Std, ks.Min, ks.Max)
		for shape, count := range ks.Shapes {
			fmt.Fprintf(w, "\t\tshape %s: %d examples\n", shape, count)
		}
	}
}

func newPreviewCmd() *cobra.Command {
	var (
		n      int
		cols   int
		bins   int
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Save a grid of the first examples and a histogram of their values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			src, err := cfg.Build()
			if err != nil {
				return err
			}
			if src.Len() == 0 {
				return errors.Errorf("%s has no examples to preview", cfg.Name)
			}
			if err := ensureDir(outDir); err != nil {
				return err
			}

			gridPath := filepath.Join(outDir, cfg.Name+"_grid.png")
			if err := saveGrid(src, n, cols, gridPath); err != nil {
				return err
			}
			klog.Infof("wrote %s", gridPath)

			values, err := stats.Histogram(src, datasets.KeyImage, n, 7)
			if err != nil {
				return err
			}
			histPath := filepath.Join(outDir, cfg.Name+"_hist.png")
			if err := plotHistogram(histPath, cfg.Name+" image values", values, bins); err != nil {
				return err
			}
			klog.Infof("wrote %s", histPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "num", "n", 16, "number of examples in the preview")
	cmd.Flags().IntVar(&cols, "cols", 4, "columns of the preview grid")
	cmd.Flags().IntVar(&bins, "bins", 64, "histogram bins")
	cmd.Flags().StringVar(&outDir, "out", "plots", "output directory for the generated images")
	return cmd
}

func newYieldCmd() *cobra.Command {
	var batches int
	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Pull batches through the parallel loader and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			loader, err := cfg.NewLoader()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %s examples, batch size %d\n",
				loader.Name(), humanize.Comma(int64(loader.Len())), loader.BatchSize())

			// Take is not safe for concurrent use, so it goes on top of Parallel.
			ds := mldata.Take(mldata.Parallel(loader), batches)
			var (
				count, examples int
				bytes           uint64
			)
			start := time.Now()
			for {
				_, inputs, labels, err := ds.Yield()
				if err == io.EOF {
					break
				}
				if err != nil {
					return errors.WithMessagef(err, "batch %d", count)
				}
				if count == 0 {
					for i, t := range inputs {
						fmt.Fprintf(w, "\tinputs[%d]: %s\n", i, t.Shape())
					}
					for i, t := range labels {
						fmt.Fprintf(w, "\tlabels[%d]: %s\n", i, t.Shape())
					}
				}
				for _, t := range append(inputs, labels...) {
					bytes += uint64(t.Shape().Memory())
				}
				examples += inputs[0].Shape().Dimensions[0]
				count++
			}
			elapsed := time.Since(start)
			fmt.Fprintf(w, "%d batches, %s examples, %s in %s (%.1f examples/s)\n",
				count, humanize.Comma(int64(examples)), humanize.Bytes(bytes),
				elapsed.Round(time.Millisecond), float64(examples)/max(elapsed.Seconds(), 1e-9))
			return nil
		},
	}
	cmd.Flags().IntVar(&batches, "batches", 10, "number of batches to pull")
	return cmd
}
