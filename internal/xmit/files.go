package xmit

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// enumerateFiles lists the playable audio files directly inside
// setFolder in ascending lexical order by filename, .wav and .mp3
// interleaved in that single order, read fresh at fire time so a file
// dropped into the set after the last reload is still broadcast.
func enumerateFiles(setFolder string) ([]string, error) {
	entries, err := os.ReadDir(setFolder)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".wav", ".mp3":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]string, 0, len(names))
	for _, name := range names {
		files = append(files, filepath.Join(setFolder, name))
	}
	return files, nil
}
