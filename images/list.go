package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List returns the image files directly under dir, sorted by name. Only
// accepted extensions are included; subdirectories and dotfiles are
// skipped. The order is stable across runs, which the batch pipeline's
// resume cursor depends on.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !IsImageFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}
