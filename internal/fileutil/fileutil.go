// Package fileutil resolves file paths case-insensitively.
//
// The real-time capture MIDI variant and the soundfont files loaded
// alongside it both trace back to an early-1990s multimedia OS whose host
// filesystem folds case; callers of decoder.Open routinely pass paths in
// whatever case the original catalog used. FindInsensitive lets a
// case-exact miss fall back to a directory scan instead of failing outright.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindInsensitive resolves path to an existing file, tolerating a casing
// mismatch against the actual directory entries. If path exists exactly as
// given, it is returned unchanged.
func FindInsensitive(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir, err := resolveDir(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	match, err := matchEntry(dir, filepath.Base(path), false)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return filepath.Join(dir, match), nil
}

// resolveDir maps a possibly-mis-cased directory path to the actual path on
// disk, matching one path component at a time. The root component (the
// volume name on Windows, "/" on Unix) is taken verbatim since volume names
// don't appear as case-insensitive directory entries.
func resolveDir(dir string) (string, error) {
	vol := filepath.VolumeName(dir)
	rest := strings.TrimPrefix(dir[len(vol):], string(filepath.Separator))
	current := vol + string(filepath.Separator)
	if vol == "" && !filepath.IsAbs(dir) {
		current = "."
	}

	for _, part := range strings.Split(filepath.ToSlash(rest), "/") {
		if part == "" || part == "." {
			continue
		}
		match, err := matchEntry(current, part, true)
		if err != nil {
			return "", fmt.Errorf("directory %q not found under %s: %w", part, current, err)
		}
		current = filepath.Join(current, match)
	}
	return current, nil
}

// matchEntry scans dir for an entry whose name matches want without regard
// to case, considering only subdirectories when dirOnly is set and only
// non-directory entries otherwise. It returns the entry's actual on-disk
// name.
func matchEntry(dir, want string, dirOnly bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if dirOnly && !entry.IsDir() {
			continue
		}
		if !dirOnly && entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), want) {
			return entry.Name(), nil
		}
	}
	return "", fmt.Errorf("no case-insensitive match for %q", want)
}
