// Package fileutil provides the file staging primitives used when
// assembling installation media.
package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// CopyFile copies a regular file, creating parent directories of dst
// as needed. Permissions of the source are preserved.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// WriteFile writes data to path, creating parent directories as
// needed. The file is closed on every exit path.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// excludeSet matches paths against a list of glob patterns. A pattern
// ending in "/" excludes a whole directory subtree by its name.
type excludeSet struct {
	files []glob.Glob
	dirs  []glob.Glob
}

func compileExcludes(patterns []string) (*excludeSet, error) {
	set := &excludeSet{}
	for _, pattern := range patterns {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			g, err := glob.Compile(dir)
			if err != nil {
				return nil, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
			}
			set.dirs = append(set.dirs, g)
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
		set.files = append(set.files, g)
	}
	return set, nil
}

func (s *excludeSet) matchDir(name string) bool {
	for _, g := range s.dirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (s *excludeSet) matchFile(name string) bool {
	for _, g := range s.files {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// CopyTree copies the tree rooted at src into dst, skipping entries
// whose base name matches one of the exclude patterns. Existing files
// in dst are overwritten.
func CopyTree(src, dst string, excludes []string) error {
	set, err := compileExcludes(excludes)
	if err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree %s: not a directory", src)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		name := d.Name()
		if d.IsDir() {
			if set.matchDir(name) {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if set.matchFile(name) || set.matchDir(name) {
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks and specials are not part of install
			// trees we stage; skip them.
			return nil
		}
		return CopyFile(path, filepath.Join(dst, rel))
	})
}
