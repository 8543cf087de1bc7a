// Package storage keeps a manifest of split runs so unchanged exports
// are not split again.
package storage

import (
	"context"
	"errors"
	"time"
)

// SplitterVersion of the segmentation logic. If Major changes, chunk
// files produced by older versions are considered stale and their
// inputs are split again; Minor changes keep old output usable.
type SplitterVersion struct {
	Major int `json:"major" db:"major"`
	Minor int `json:"minor" db:"minor"`
}

type SourceUUID string

type DataSource struct {
	UUID SourceUUID `json:"uuid"`
}

type InputUUID string

// Input is one monolithic legacy HTML export that was, or is being,
// split into chunk files.
type Input struct {
	Source DataSource `json:"source"`
	UUID   InputUUID  `json:"uuid"`
	ETag   string     `json:"etag"`
	Path   string     `json:"path"`

	// Total records across all chunks. Zero until the split finished.
	Records int `json:"records"`

	// Timestamp when this input was first seen and created
	CreatedAt time.Time `json:"createdAt"`
	// Version of the splitter that produced the chunks
	SplitterVersion SplitterVersion `json:"splitterVersion"`
	// Set once all chunks of the input were written and recorded
	SplitFinished *time.Time `json:"splitFinished"`
}

// Chunk is one numbered output file produced from an input.
type Chunk struct {
	Input InputUUID `json:"input"`
	// 1-based position of the file in the output sequence
	Seq int `json:"seq"`
	// File name inside the input's output directory
	Name string `json:"name"`
	// Number of records held by the file
	Records int `json:"records"`
}

var ErrSourceDoesntExist = errors.New("data source does not exist in storage")
var ErrInputDoesntExist = errors.New("input does not exist in storage data source")

type Storage interface {
	GetOrCreateSource(ctx context.Context, sourceUUID SourceUUID) (*DataSource, error)
	DeleteSource(ctx context.Context, sourceUUID SourceUUID) error

	// GetOrCreateInput returns the manifest entry for the input at path
	// and reports whether it was just created.
	GetOrCreateInput(ctx context.Context, sourceUUID SourceUUID, path string, eTag string, version SplitterVersion) (*Input, bool, error)
	DeleteInput(ctx context.Context, sourceUUID SourceUUID, input InputUUID) error

	// PutChunk records one produced chunk file of an input.
	PutChunk(ctx context.Context, sourceUUID SourceUUID, input InputUUID, seq int, name string, records int) error
	ListChunks(ctx context.Context, sourceUUID SourceUUID, input InputUUID) ([]Chunk, error)

	// FinishSplit marks the input as completely split.
	FinishSplit(ctx context.Context, sourceUUID SourceUUID, input InputUUID, records int) error
}
