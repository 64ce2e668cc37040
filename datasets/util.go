package datasets

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Auto-discovery helpers

// AutoFindRoot returns the first of candidates that is an existing directory.
func AutoFindRoot(candidates []string) (string, error) {
	for _, dir := range candidates {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errors.Errorf("no dataset root found in %v", candidates)
}

// FindManifests finds manifest (.txt) files in a dataset root.
func FindManifests(dir string) ([]string, error) {
	pattern := filepath.Join(dir, "*.txt")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("no manifest files found in %s", dir)
	}
	return matches, nil
}
