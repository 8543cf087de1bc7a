// Package source defines where legacy HTML activity exports come from.
package source

import (
	"context"
	"io"
)

// Place where takeout exports are located.
type Source interface {
	// Stable identifier of the source, used as the manifest key.
	UUID() string
	// Open the source for iteration over candidate activity files.
	Open() (Iterator, error)
}

// Opened data source.
type Iterator interface {
	io.Closer

	// Get and open the next candidate file. Thread safe. If there are
	// no files left, returns [io.EOF].
	Next(ctx context.Context) (FileHandler, error)
}

type FileHandler interface {
	io.ReadCloser

	// Unique identifier of the file content. Used to detect that an
	// input changed since it was last split.
	Etag() string
	// Path of the file inside the data source.
	Path() string
}
