package fshelper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kamataryo/geotag/pkg/common"
)

// ResolvePattern expands a glob pattern (with ** support) into regular file
// paths, sorted lexically. An empty result is not an error.
func ResolvePattern(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %s: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, match)
	}

	sort.Strings(files)
	return files, nil
}

// EnsureDir creates dir and any missing parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return common.NewError(common.KindOutputUnwritable, dir, err)
	}
	return nil
}

// OutputPath returns the destination of src inside dir, keeping the base name
func OutputPath(dir, src string) string {
	return filepath.Join(dir, filepath.Base(src))
}

// CopyFile copies src to dst, truncating dst if it exists. Copying a file
// onto itself is refused.
func CopyFile(src, dst string) error {
	if SameFile(src, dst) {
		return common.NewError(common.KindOutputUnwritable, dst, fmt.Errorf("destination is the source file"))
	}

	in, err := os.Open(src)
	if err != nil {
		return common.NewError(common.KindOutputUnwritable, src, fmt.Errorf("open source: %w", err))
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return common.NewError(common.KindOutputUnwritable, src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return common.NewError(common.KindOutputUnwritable, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return common.NewError(common.KindOutputUnwritable, dst, err)
	}

	if err := out.Close(); err != nil {
		return common.NewError(common.KindOutputUnwritable, dst, err)
	}

	return nil
}

// SameFile reports whether a and b refer to the same file on disk
func SameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
