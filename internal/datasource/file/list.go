package file

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadList reads a text file line by line and returns a slice of strings
// containing non-empty, non-comment lines.
//
// Lines that are empty or start with '#' (after trimming leading/trailing
// whitespace) are skipped. The order of lines is preserved.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOptions controls directory enumeration.
type ListOptions struct {
	// Patterns are filepath.Match patterns applied to base names. Defaults to
	// "*.fit" and "*.fit.gz"; matching is case-insensitive.
	Patterns []string
	// Recursive descends into subdirectories.
	Recursive bool
	// Limit caps the number of returned paths (0 = no limit).
	Limit int
}

// List returns the FIT files under dir, sorted lexically so that runs over the
// same directory see the same file order.
func List(dir string, opt ListOptions) ([]string, error) {
	patterns := opt.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*.fit", "*.fit.gz"}
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !opt.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		ok, err := matchAny(patterns, strings.ToLower(d.Name()))
		if err != nil {
			return err
		}
		if ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	sort.Strings(out)
	if opt.Limit > 0 && len(out) > opt.Limit {
		out = out[:opt.Limit]
	}
	return out, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(strings.ToLower(p), name)
		if err != nil {
			return false, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
