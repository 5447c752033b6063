// Package scanner lists backup files under the NFS root.
// Package scanner 扫描 NFS 目录下的备份文件
package scanner

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
	"time"
)

// TagOther is the tag given to files admitted only by an explicit extension filter.
const TagOther = "other"

// FileEntry 候选文件
type FileEntry struct {
	Path    string // absolute local path
	RelPath string // slash-separated path relative to the root
	Size    int64
	ModTime time.Time
	Ext     string
	Tag     string
	// Expired is set for files older than ListRequest.MinModTime. They are
	// still yielded so the caller can count them.
	Expired bool
}

// ListRequest 扫描参数
type ListRequest struct {
	Root       string
	Categories []string
	Extensions []string
	MinModTime time.Time
}

// Scanner 文件扫描器
type Scanner struct {
	extTags map[string]string
}

// New creates a scanner from an extension → tag map (".vbk" → "full").
func New(extTags map[string]string) *Scanner {
	m := make(map[string]string, len(extTags))
	for ext, tag := range extTags {
		m[normalizeExt(ext)] = tag
	}
	return &Scanner{extTags: m}
}

// Tag returns the tag configured for ext.
func (s *Scanner) Tag(ext string) (string, bool) {
	tag, ok := s.extTags[normalizeExt(ext)]
	return tag, ok
}

// List walks req.Root in lexical order and yields every candidate file.
// The sequence is restartable; each range walks the tree again. A walk
// error is yielded once and ends the sequence.
func (s *Scanner) List(ctx context.Context, req ListRequest) iter.Seq2[FileEntry, error] {
	categories := toSet(req.Categories, false)
	extensions := toSet(req.Extensions, true)

	return func(yield func(FileEntry, error) bool) {
		root := filepath.Clean(req.Root)
		stopped := false
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			entry, ok := s.match(d.Name(), categories, extensions)
			if !ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			entry.Path = p
			entry.RelPath = filepath.ToSlash(rel)
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
			entry.Expired = !req.MinModTime.IsZero() && entry.ModTime.Before(req.MinModTime)

			if !yield(entry, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(FileEntry{}, err)
		}
	}
}

func (s *Scanner) match(name string, categories, extensions map[string]struct{}) (FileEntry, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return FileEntry{}, false
	}
	tag, mapped := s.extTags[ext]

	switch {
	case len(extensions) > 0:
		if _, ok := extensions[ext]; !ok {
			return FileEntry{}, false
		}
		if !mapped {
			tag = TagOther
		}
	case !mapped:
		return FileEntry{}, false
	case len(categories) > 0:
		if _, ok := categories[strings.ToLower(tag)]; !ok {
			return FileEntry{}, false
		}
	}
	return FileEntry{Ext: ext, Tag: tag}, true
}

// NormalizeKey builds "<prefix>/<tag>/<rel>" with forward slashes, no
// duplicate slashes and no leading "./" or "/".
func NormalizeKey(prefix, tag, rel string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{prefix, tag, rel} {
		s = strings.ReplaceAll(s, "\\", "/")
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	key := strings.Join(parts, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	for strings.HasPrefix(key, "./") {
		key = strings.TrimPrefix(key, "./")
	}
	return strings.TrimLeft(key, "/")
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func toSet(in []string, ext bool) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	for _, s := range in {
		if ext {
			s = normalizeExt(s)
		} else {
			s = strings.ToLower(strings.TrimSpace(s))
		}
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return m
}
