package activitysplit

import (
	"log/slog"

	"github.com/takeoutkit/activitysplit/source"
	"github.com/takeoutkit/activitysplit/storage"
)

type EngineOption func(e *Engine)

// WithSources adds takeout sources to process.
func WithSources(sources ...source.Source) EngineOption {
	return func(e *Engine) {
		e.sources = append(e.sources, sources...)
	}
}

// WithStorage attaches a split-run manifest. Without one, every input
// is split on every run.
func WithStorage(store storage.Storage) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRecordsPerFile overrides how many records go into one chunk
// file. Values below 1 make NewEngine fail.
func WithRecordsPerFile(n int) EngineOption {
	return func(e *Engine) {
		e.recordsPerFile = n
	}
}

// WithParallelism bounds how many input files are split at the same
// time. Each file is still processed by a single segmenter and writer.
func WithParallelism(n int64) EngineOption {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithVersion overrides the splitter version recorded in the manifest.
func WithVersion(version storage.SplitterVersion) EngineOption {
	return func(e *Engine) {
		e.version = version
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}
