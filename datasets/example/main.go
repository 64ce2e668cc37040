package main

// Example command that demonstrates opening the object datasets with the
// auto-discovery helpers and converting a small batch into gomlx tensors.
//
// The datasets are lazy: they only store file paths and decode an image when
// its example is requested.
//
// Usage:
//   go run ./example
//
// Note: this example expects an Amazon style dataset (a manifest of product
// directories) under one of the data/amazon paths tried below. If none is
// found the example will print an error and exit.

import (
	"fmt"
	"log"

	"github.com/Noofbiz/objectData/datasets"
)

func main() {
	root, err := datasets.AutoFindRoot([]string{"data/amazon", "../data/amazon", "../../data/amazon"})
	if err != nil {
		log.Fatalf("failed to find dataset root: %v", err)
	}
	manifests, err := datasets.FindManifests(root)
	if err != nil {
		log.Fatalf("failed to find manifests: %v", err)
	}
	fmt.Printf("Using dataset root: %s (manifests: %v)\n", root, manifests)

	family := datasets.Amazon.WithRoot(root)
	src, err := family.Open(datasets.Train, 128, []string{datasets.KeyImage})
	if err != nil {
		log.Fatalf("failed to open %s: %v", family.Name, err)
	}
	ds := datasets.NewAugmented(src, datasets.Train, datasets.AugmentOptions{CropSize: 64, Coord: true, Seed: 1})
	fmt.Printf("Total examples available: %d\n", ds.Len())

	// Prepare a small batch (first N examples)
	n := min(8, ds.Len())
	if n == 0 {
		return
	}
	loader := datasets.NewLoader("amazon-example", ds, datasets.LoaderOptions{BatchSize: n})
	indices := make([]int, n)
	for i := range n {
		indices[i] = i
	}
	fmt.Printf("Loading batch of %d examples...\n", n)
	examples, err := loader.Batch(indices)
	if err != nil {
		log.Fatalf("failed to build batch: %v", err)
	}

	// Convert to flat contiguous buffers and then to gomlx tensors
	images, err := datasets.MakeImageBatchFlat(examples, datasets.KeyImage)
	if err != nil {
		log.Fatalf("failed to make image batch flat: %v", err)
	}
	coords, err := datasets.MakeImageBatchFlat(examples, datasets.KeyCoord)
	if err != nil {
		log.Fatalf("failed to make coord batch flat: %v", err)
	}
	imgT, coordT := images.ToGomlxTensor(), coords.ToGomlxTensor()
	fmt.Printf("Created tensors: image=%s coord=%s\n", imgT.Shape(), coordT.Shape())

	// The same batch as yielded to a train.Loop.
	_, inputs, labels, err := loader.Yield()
	if err != nil {
		log.Fatalf("failed to yield: %v", err)
	}
	fmt.Printf("Yielded %d inputs and labels %s\n", len(inputs), labels[0].Shape())

	if img, ok := examples[0].Image(); ok {
		fmt.Printf("  First example image shape: %v, first pixel: %v\n", img.Shape(), img.Data[:img.Channels])
	}

	fmt.Println("\nExample completed successfully!")
}
