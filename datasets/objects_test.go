package datasets

import (
	"image"
	"image/color"
	"image/png"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// writeManifest writes a manifest file with the given entries to path.
func writeManifest(t *testing.T, path string, entries []string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for manifest %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(entries, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write manifest %s: %v", path, err)
	}
}

// writePNG writes a w x h PNG whose red channel encodes x and green channel y.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for image %s: %v", path, err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / max(w-1, 1)), G: uint8(y * 255 / max(h-1, 1)), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image %s: %v", path, err)
	}
}

// makeAmazonTree writes an Amazon-style root with one directory per product.
// Products are listed in sorted order; val.txt holds the first one.
func makeAmazonTree(t *testing.T, root string, products map[string]int, w, h int) {
	t.Helper()
	entries := slices.Sorted(maps.Keys(products))
	for _, product := range entries {
		for i := range products[product] {
			writePNG(t, filepath.Join(root, product, string(rune('a'+i))+".png"), w, h)
		}
	}
	writeManifest(t, filepath.Join(root, "train.txt"), entries)
	writeManifest(t, filepath.Join(root, "val.txt"), entries[:1])
}

func TestImagePaths_RescaleAndCrop(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "wide.png")
	writePNG(t, path, 40, 20)

	ip := NewImagePaths([]string{path}, 10, false, 0)
	ex, err := ip.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	img, ok := ex.Image()
	if !ok {
		t.Fatalf("example has no image: %v", ex)
	}
	if img.Height != 10 || img.Width != 10 || img.Channels != 3 {
		t.Fatalf("unexpected image shape %v, want [10 10 3]", img.Shape())
	}
	for _, v := range img.Data {
		if v < -1 || v > 1 {
			t.Fatalf("pixel value %v outside [-1, 1]", v)
		}
	}
	if got := ex.FilePath(); got != path {
		t.Fatalf("file path %q, want %q", got, path)
	}
}

func TestImagePaths_OriginalSize(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "img.png")
	writePNG(t, path, 7, 5)

	ex, err := NewImagePaths([]string{path}, 0, false, 0).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	img, _ := ex.Image()
	if img.Height != 5 || img.Width != 7 {
		t.Fatalf("unexpected image shape %v, want [5 7 3]", img.Shape())
	}
}

func TestImagePaths_Errors(t *testing.T) {
	tmp := t.TempDir()
	corrupt := filepath.Join(tmp, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	ip := NewImagePaths([]string{filepath.Join(tmp, "missing.png"), corrupt}, 8, false, 0)
	if _, err := ip.Example(0); err == nil {
		t.Fatalf("expected error for missing image")
	}
	if _, err := ip.Example(1); err == nil {
		t.Fatalf("expected error for corrupt image")
	}
	if _, err := ip.Example(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestObjects_KeyFilter(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "img.png")
	writePNG(t, path, 8, 8)
	ip := NewImagePaths([]string{path}, 8, false, 0)

	ex, err := NewObjects(ip, []string{KeyImage}).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	if len(ex) != 1 {
		t.Fatalf("expected exactly the requested key, got %d keys", len(ex))
	}
	if _, ok := ex.Image(); !ok {
		t.Fatalf("filtered example lost the image")
	}

	ex, err = NewObjects(ip, nil).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	if len(ex) != 2 {
		t.Fatalf("expected pass-through example with 2 keys, got %d", len(ex))
	}

	if _, err = NewObjects(ip, []string{"segmentation"}).Example(0); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestShapeNet_ExpansionFactor(t *testing.T) {
	tmp := t.TempDir()
	writeManifest(t, filepath.Join(tmp, "train.txt"), []string{"02691156/a", "02691156/b"})
	writeManifest(t, filepath.Join(tmp, "val.txt"), []string{"03001627/c"})

	family := ShapeNet.WithRoot(tmp)
	train, err := family.Open(Train, 32, nil)
	if err != nil {
		t.Fatalf("Open(Train) error: %v", err)
	}
	if got := train.Len(); got != 2*24 {
		t.Fatalf("expected 48 examples, got %d", got)
	}
	val, err := family.Open(Validation, 32, nil)
	if err != nil {
		t.Fatalf("Open(Validation) error: %v", err)
	}
	if got := val.Len(); got != 24 {
		t.Fatalf("expected 24 examples, got %d", got)
	}
	// Views are not checked on open, only on access.
	if _, err := val.Example(0); err == nil {
		t.Fatalf("expected error reading a view that does not exist")
	}
}

func TestAmazon_GlobCount(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B001": 3, "B002": 2}, 12, 12)

	ds, err := Amazon.WithRoot(tmp).Open(Train, 8, []string{KeyImage})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got := ds.Len(); got != 5 {
		t.Fatalf("expected 5 examples, got %d", got)
	}
	for i := range ds.Len() {
		ex, err := ds.Example(i)
		if err != nil {
			t.Fatalf("Example(%d) error: %v", i, err)
		}
		img, _ := ex.Image()
		if img.Height != 8 || img.Width != 8 {
			t.Fatalf("Example(%d) shape %v, want [8 8 3]", i, img.Shape())
		}
	}
}

func TestAmazon_ValidationUsesFirstProduct(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B002": 2, "B001": 3}, 12, 12)

	ds, err := Amazon.WithRoot(tmp).Open(Validation, 8, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got := ds.Len(); got != 3 {
		t.Fatalf("expected the 3 images of B001, got %d", got)
	}
	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	if want := filepath.Join(tmp, "B001", "a.png"); ex.FilePath() != want {
		t.Fatalf("file path %q, want %q", ex.FilePath(), want)
	}
}

func TestMissingManifest(t *testing.T) {
	if _, err := Amazon.WithRoot(t.TempDir()).Open(Validation, 8, nil); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestAugmented_RandomCropWithCoord(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B001": 2}, 20, 20)
	src, err := Amazon.WithRoot(tmp).Open(Train, 16, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ds := NewAugmented(src, Train, AugmentOptions{CropSize: 6, Coord: true, Seed: 3})
	for i := range ds.Len() {
		ex, err := ds.Example(i)
		if err != nil {
			t.Fatalf("Example(%d) error: %v", i, err)
		}
		img, _ := ex.Image()
		coord, ok := ex.Coord()
		if !ok {
			t.Fatalf("Example(%d) has no coord", i)
		}
		if img.Height != 6 || img.Width != 6 {
			t.Fatalf("image shape %v, want [6 6 3]", img.Shape())
		}
		if coord.Height != img.Height || coord.Width != img.Width || coord.Channels != 1 {
			t.Fatalf("coord shape %v does not match image %v", coord.Shape(), img.Shape())
		}
		for _, v := range coord.Data {
			if v < 0 || v >= 1 {
				t.Fatalf("coord value %v outside [0, 1)", v)
			}
		}
		// Within a row the grid increases by 1/(16*16) per pixel.
		step := coord.At(0, 1, 0) - coord.At(0, 0, 0)
		if step < 1.0/256-1e-6 || step > 1.0/256+1e-6 {
			t.Fatalf("unexpected coord step %v", step)
		}
	}
}

func TestAugmented_CenterCropValidation(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B001": 1}, 10, 10)
	src, err := Amazon.WithRoot(tmp).Open(Validation, 10, []string{KeyImage})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	ds := NewAugmented(src, Validation, AugmentOptions{CropSize: 4, Coord: true})
	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	coord, _ := ex.Coord()
	// Center window starts at (3, 3) of a 10x10 grid.
	want := float32(3*10+3) / 100
	if got := coord.At(0, 0, 0); got < want-1e-6 || got > want+1e-6 {
		t.Fatalf("coord origin %v, want %v", got, want)
	}

	again, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	a, _ := ex.Image()
	b, _ := again.Image()
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("center crop is not deterministic at %d", i)
		}
	}
}

func TestAugmented_NoCropPassThrough(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B001": 1}, 9, 9)
	src, err := Amazon.WithRoot(tmp).Open(Train, 9, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	ex, err := NewAugmented(src, Train, AugmentOptions{Coord: true}).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error: %v", err)
	}
	img, _ := ex.Image()
	if img.Height != 9 || img.Width != 9 {
		t.Fatalf("image shape %v, want [9 9 3]", img.Shape())
	}
	if _, ok := ex.Coord(); ok {
		t.Fatalf("coord should only be produced together with a crop")
	}
}

func TestAugmented_CropTooLarge(t *testing.T) {
	tmp := t.TempDir()
	makeAmazonTree(t, tmp, map[string]int{"B001": 1}, 8, 8)
	src, err := Amazon.WithRoot(tmp).Open(Train, 8, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if _, err := NewAugmented(src, Validation, AugmentOptions{CropSize: 16}).Example(0); err == nil {
		t.Fatalf("expected error cropping 16x16 out of 8x8")
	}
}

func TestParseSplit(t *testing.T) {
	for in, want := range map[string]Split{"train": Train, "val": Validation, "validation": Validation} {
		got, err := ParseSplit(in)
		if err != nil || got != want {
			t.Fatalf("ParseSplit(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSplit("test"); err == nil {
		t.Fatalf("expected error for unknown split")
	}
}
