package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-melody/config"
)

// ListMIDI returns the .mid/.midi files directly inside dir, sorted
func ListMIDI(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, config.Wrap(err, "data dir "+dir+" does not exist")
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsMIDI(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsMIDI reports whether name looks like a standard MIDI file
func IsMIDI(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".mid" || ext == ".midi"
}
