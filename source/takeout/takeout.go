// Package takeout locates legacy HTML activity files inside an
// unpacked Google Takeout directory tree.
package takeout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/takeoutkit/activitysplit/source"
)

var ErrUnknownLocale = errors.New("takeout locale is not supported")

// Takeout is one unpacked export rooted somewhere inside a filesystem.
type Takeout struct {
	fs     fs.FS
	root   string
	locale Locale
	uuid   string
}

func New(fsys fs.FS, root string, locale Locale, uuid string) *Takeout {
	return &Takeout{
		fs:     fsys,
		root:   root,
		locale: locale,
		uuid:   uuid,
	}
}

func (t *Takeout) UUID() string {
	return t.uuid
}

func (t *Takeout) Open() (source.Iterator, error) {
	patterns, ok := locales[t.locale]
	if !ok {
		return nil, ErrUnknownLocale
	}

	return &takeoutIterator{
		fs:       t.fs,
		root:     t.root,
		patterns: patterns,
		walker:   newWalker(t.fs, t.root),
	}, nil
}

type takeoutIterator struct {
	fs       fs.FS
	root     string
	patterns patternSet
	walker   *walker
	locker   sync.Mutex
}

// rel strips the takeout root from a walker path so patterns match the
// same way no matter where the export is mounted.
func (i *takeoutIterator) rel(p string) string {
	if i.root == "." {
		return p
	}
	return strings.TrimPrefix(p, i.root+"/")
}

func (i *takeoutIterator) Next(ctx context.Context) (source.FileHandler, error) {
	i.locker.Lock()
	defer i.locker.Unlock()

	for i.walker.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := i.walker.Err(); err != nil {
			return nil, err
		}

		entry := i.walker.Entry()
		rel := i.rel(i.walker.Path())

		if entry.IsDir() {
			if i.patterns.prunesDir(rel) {
				i.walker.SkipDir()
			}
			continue
		}

		if !i.patterns.matchesActivity(rel) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, errors.Join(errors.New("error while reading file info"), err)
		}

		return &takeoutFile{
			fs:   i.fs,
			path: i.walker.Path(),
			etag: fmt.Sprintf("%s_%d", info.ModTime().String(), info.Size()),
		}, nil
	}

	if err := i.walker.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (i *takeoutIterator) Close() error {
	return nil
}

type takeoutFile struct {
	fs   fs.FS
	fp   fs.File
	path string
	etag string
}

func (f *takeoutFile) Etag() string {
	return f.etag
}

func (f *takeoutFile) Path() string {
	return f.path
}

// Read opens the underlying file on first use.
func (f *takeoutFile) Read(p []byte) (n int, err error) {
	if f.fp == nil {
		fp, err := f.fs.Open(f.path)
		if err != nil {
			return 0, errors.Join(errors.New("failed to open activity file for reading"), err)
		}
		f.fp = fp
	}

	return f.fp.Read(p)
}

func (f *takeoutFile) Close() error {
	if f.fp != nil {
		return f.fp.Close()
	}
	return nil
}
