package fileloader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// DiscoveryOptions controls how command line arguments are expanded into files.
type DiscoveryOptions struct {
	Pattern         string   // Pattern applied inside directory arguments (default "**/*")
	ExcludePatterns []string // Base-name patterns to exclude
	MaxFiles        int      // Maximum files to return (0 = unlimited)
}

// DiscoveryResult lists the files found for a set of arguments.
type DiscoveryResult struct {
	Files     []string // In argument order, duplicates removed
	TotalSize int64    // Total size in bytes of Files
}

// IsDirectory checks if the path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// hasGlobMeta reports whether arg contains doublestar pattern syntax.
func hasGlobMeta(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// DiscoverFiles expands paths, globs and directories into the files to load.
//
//   - A plain file path is returned as given, supported or not, so that the
//     caller reports unsupported extensions.
//   - A glob ("data/**/*.json") returns every matching file.
//   - A directory returns the files below it that match options.Pattern and
//     have a supported extension.
func DiscoverFiles(args []string, options DiscoveryOptions) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	seen := make(map[string]bool)

	add := func(path string, size int64) bool {
		if seen[path] || excluded(path, options.ExcludePatterns) {
			return true
		}
		if options.MaxFiles > 0 && len(result.Files) >= options.MaxFiles {
			return false
		}
		seen[path] = true
		result.Files = append(result.Files, path)
		result.TotalSize += size
		return true
	}

	for _, arg := range args {
		switch {
		case hasGlobMeta(arg):
			matches, err := globFiles(arg, false)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if !add(m.path, m.size) {
					return result, nil
				}
			}

		case IsDirectory(arg):
			pattern := options.Pattern
			if pattern == "" {
				pattern = "**/*"
			}
			matches, err := globFiles(filepath.Join(arg, pattern), true)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if !add(m.path, m.size) {
					return result, nil
				}
			}

		default:
			info, err := os.Stat(arg)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot access %s", arg)
			}
			if !add(arg, info.Size()) {
				return result, nil
			}
		}
	}

	return result, nil
}

type globMatch struct {
	path string
	size int64
}

// globFiles returns the regular files matching pattern in lexical order.
func globFiles(pattern string, supportedOnly bool) ([]globMatch, error) {
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, errors.Errorf("invalid glob pattern %q", pattern)
	}
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "pattern matching failed")
	}
	sort.Strings(paths)

	matches := make([]globMatch, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue // Skip what we can't stat and directories
		}
		if supportedOnly && !IsSupported(p) {
			continue
		}
		matches = append(matches, globMatch{path: p, size: info.Size()})
	}
	return matches, nil
}

func excluded(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
