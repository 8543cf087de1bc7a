// Package chunk persists a record sequence as numbered files, each
// holding at most a configured number of records.
package chunk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/takeoutkit/activitysplit/segment"
)

const DefaultRecordsPerFile = 1000
const DefaultBaseName = "MyActivity"

var ErrInvalidRecordsPerFile = errors.New("records per file must be a positive number")

// Info describes one chunk file produced by a writer.
type Info struct {
	// File name inside the output directory.
	Name string `json:"name"`
	// Number of records written into the file.
	Records int `json:"records"`
}

// Writer materializes records into <baseName>-%04d.html files inside
// one output directory. Files are numbered from 1 with no gaps, hold
// at most recordsPerFile records each in arrival order, and are opened
// lazily on the first record, so an empty record sequence produces no
// output file at all. A record is never split across two files.
type Writer struct {
	dir            string
	baseName       string
	recordsPerFile int

	out     *os.File
	index   int
	count   int
	written []Info
}

// NewWriter validates the configuration before any I/O happens.
func NewWriter(dir string, options ...Option) (*Writer, error) {
	writer := &Writer{
		dir:            dir,
		baseName:       DefaultBaseName,
		recordsPerFile: DefaultRecordsPerFile,
	}
	for _, option := range options {
		option(writer)
	}

	if writer.recordsPerFile < 1 {
		return nil, ErrInvalidRecordsPerFile
	}
	return writer, nil
}

func (w *Writer) fileName(index int) string {
	return fmt.Sprintf("%s-%04d.html", w.baseName, index)
}

// rotate closes the current file if one is open and opens the next one
// in the numbering sequence.
func (w *Writer) rotate() error {
	if w.out != nil {
		if err := w.out.Close(); err != nil {
			return errors.Join(errors.New("failed to close full chunk file"), err)
		}
		w.out = nil
	}

	w.index++
	name := w.fileName(w.index)
	out, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return errors.Join(errors.New("failed to create chunk file"), err)
	}
	w.out = out
	w.count = 0
	w.written = append(w.written, Info{Name: name})
	return nil
}

// Append writes one record verbatim, rotating to the next file when
// the current one is full. Any I/O failure is fatal; files written
// before the failure are left on disk.
func (w *Writer) Append(record segment.Record) error {
	if w.out == nil || w.count == w.recordsPerFile {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if _, err := w.out.Write(record.Raw); err != nil {
		return errors.Join(errors.New("failed to write record to chunk file"), err)
	}
	w.count++
	w.written[len(w.written)-1].Records++
	return nil
}

// Close closes the currently open chunk file. Safe to call multiple
// times and when nothing was ever written.
func (w *Writer) Close() error {
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	if err != nil {
		return errors.Join(errors.New("failed to close chunk file"), err)
	}
	return nil
}

// Written reports the chunk files produced so far, in creation order.
func (w *Writer) Written() []Info {
	return w.written
}
