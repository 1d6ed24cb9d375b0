// Package assets picks the next face or style image from a directory of candidates.
package assets

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions accepted as candidate assets.
var Extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// Rotator picks an asset from dir that differs from current when possible.
// ok is false when there is no candidate; callers keep their current asset.
type Rotator interface {
	Pick(dir, current string) (path string, ok bool)
}

// Picker is the default Rotator, choosing uniformly among the candidates.
type Picker struct {
	// Intn is the random source. Nil uses math/rand/v2.
	Intn func(n int) int
}

func (p Picker) Pick(dir, current string) (string, bool) {
	candidates := List(dir)
	if len(candidates) == 0 {
		return "", false
	}

	// current may be a bare file name or a full path, compare by base name
	currentBase := filepath.Base(current)
	if len(candidates) > 1 && current != "" {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if filepath.Base(c) != currentBase {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	intn := p.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return candidates[intn(len(candidates))], true
}

// List returns the sorted image files in dir. Unreadable directories yield nil.
func List(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !Extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files
}
