package takeout

import (
	"errors"
	"io/fs"
	"path"
)

var errWalkNotStarted = errors.New("walk: method Next must be called first")

// walker lazily traverses a filesystem tree depth first, yielding one
// entry per Next call so the iterator above can stop between files and
// resume later without holding the whole listing in memory.
type walker struct {
	fsys    fs.FS
	cur     step
	pending []step
	descend bool
}

type step struct {
	path  string
	entry fs.DirEntry
	err   error
}

func newWalker(fsys fs.FS, root string) *walker {
	info, err := fs.Stat(fsys, root)
	return &walker{
		fsys:    fsys,
		cur:     step{err: errWalkNotStarted},
		pending: []step{{path: root, entry: statDirEntry{info}, err: err}},
	}
}

func (w *walker) Next() bool {
	if w.descend && w.cur.err == nil && w.cur.entry.IsDir() {
		entries, err := fs.ReadDir(w.fsys, w.cur.path)
		for i := len(entries) - 1; i >= 0; i-- {
			w.pending = append(w.pending, step{
				path:  path.Join(w.cur.path, entries[i].Name()),
				entry: entries[i],
			})
		}
		if err != nil {
			// Second visit of the directory, to report the ReadDir error.
			w.cur.err = err
			w.pending = append(w.pending, w.cur)
		}
	}

	if len(w.pending) == 0 {
		w.descend = false
		return false
	}
	last := len(w.pending) - 1
	w.cur = w.pending[last]
	w.pending = w.pending[:last]
	w.descend = true
	return true
}

func (w *walker) Path() string {
	return w.cur.path
}

func (w *walker) Entry() fs.DirEntry {
	return w.cur.entry
}

func (w *walker) Err() error {
	return w.cur.err
}

// SkipDir prevents descending into the current directory. Children of
// a directory are only expanded on the Next call after it was yielded,
// so there is nothing to unwind.
func (w *walker) SkipDir() {
	w.descend = false
}

type statDirEntry struct{ f fs.FileInfo }

func (e statDirEntry) Name() string               { return e.f.Name() }
func (e statDirEntry) IsDir() bool                { return e.f.IsDir() }
func (e statDirEntry) Type() fs.FileMode          { return e.f.Mode().Type() }
func (e statDirEntry) Info() (fs.FileInfo, error) { return e.f, nil }
