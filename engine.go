package activitysplit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/semaphore"

	"github.com/takeoutkit/activitysplit/chunk"
	"github.com/takeoutkit/activitysplit/segment"
	"github.com/takeoutkit/activitysplit/source"
	"github.com/takeoutkit/activitysplit/storage"
)

// Version of the record segmentation logic, recorded in the manifest.
// Bump Major when chunk output of older runs must be regenerated.
var Version = storage.SplitterVersion{Major: 1, Minor: 0}

// Engine walks takeout sources, splits every legacy HTML activity file
// it finds, and optionally records the results in a manifest so
// unchanged inputs are skipped on the next run. Each input is
// processed end to end by exactly one segmenter and one chunk writer;
// parallelism only exists across distinct input files.
type Engine struct {
	version        storage.SplitterVersion
	sources        []source.Source
	store          storage.Storage
	outputRoot     string
	recordsPerFile int
	parallelism    int64
	logger         *slog.Logger

	workLock *semaphore.Weighted
}

func NewEngine(outputRoot string, options ...EngineOption) (*Engine, error) {
	engine := &Engine{
		version:        Version,
		outputRoot:     outputRoot,
		recordsPerFile: chunk.DefaultRecordsPerFile,
		parallelism:    1,
		logger:         slog.Default(),
	}
	for _, option := range options {
		option(engine)
	}

	if engine.recordsPerFile < 1 {
		return nil, chunk.ErrInvalidRecordsPerFile
	}
	if engine.parallelism < 1 {
		engine.parallelism = 1
	}
	engine.workLock = semaphore.NewWeighted(engine.parallelism)

	return engine, nil
}

// Process splits all candidate files of all sources. The first failed
// file aborts the run; chunk files written before the failure are left
// on disk.
func (e *Engine) Process(ctx context.Context) error {
	for _, src := range e.sources {
		sourceIterator, err := src.Open()
		if err != nil {
			return errors.Join(errors.New("failed to open source"), err)
		}

		err = e.processSource(ctx, src, sourceIterator)
		sourceIterator.Close()

		if err != nil {
			return errors.Join(errors.New("failed to process source"), err)
		}
	}

	return nil
}

func (e *Engine) processSource(ctx context.Context, src source.Source, sourceIterator source.Iterator) error {
	var firstErr error
	var firstErrLock sync.Mutex

	fail := func(err error) {
		firstErrLock.Lock()
		if firstErr == nil {
			firstErr = err
		}
		firstErrLock.Unlock()
	}
	failed := func() bool {
		firstErrLock.Lock()
		defer firstErrLock.Unlock()
		return firstErr != nil
	}

	for {
		if ctx.Err() != nil {
			fail(ctx.Err())
			break
		}
		if failed() {
			break
		}

		f, err := sourceIterator.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			fail(errors.Join(errors.New("error while iterating over source files"), err))
			break
		}

		if err := e.workLock.Acquire(ctx, 1); err != nil {
			f.Close()
			fail(err)
			break
		}
		go func() {
			defer e.workLock.Release(1)

			err := e.processFile(ctx, src, f)
			if closeErr := f.Close(); closeErr != nil {
				err = errors.Join(errors.New("error during closing processed file"), closeErr, err)
			}
			if err != nil {
				fail(err)
			}
		}()
	}

	// Drain all in-flight workers before reporting.
	if err := e.workLock.Acquire(context.Background(), e.parallelism); err == nil {
		e.workLock.Release(e.parallelism)
	}

	return firstErr
}

func (e *Engine) processFile(ctx context.Context, src source.Source, f source.FileHandler) error {
	log := e.logger.With("source", src.UUID(), "path", f.Path())

	// The takeout patterns select candidates by name only; make sure
	// the bytes actually look like HTML before running the tokenizer
	// over them.
	head := make([]byte, 1024)
	readed, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return errors.Join(errors.New("failed to read file head to determine mime type"), err)
	}
	mime := mimetype.Detect(head[:readed])
	if !mime.Is("text/html") {
		log.Warn("candidate file is not HTML, skipping", "mime", mime.String())
		return nil
	}

	var input *storage.Input
	if e.store != nil {
		if _, err := e.store.GetOrCreateSource(ctx, storage.SourceUUID(src.UUID())); err != nil {
			return errors.Join(errors.New("error during source creation in the manifest"), err)
		}

		in, created, err := e.store.GetOrCreateInput(ctx, storage.SourceUUID(src.UUID()), f.Path(), f.Etag(), e.version)
		if err != nil {
			return errors.Join(errors.New("error during input creation in the manifest"), err)
		}

		mustSplit := created
		if !mustSplit {
			mustSplit = mustSplit || in.SplitFinished == nil
			mustSplit = mustSplit || in.ETag != f.Etag()
			mustSplit = mustSplit || in.SplitterVersion.Major != e.version.Major
			if mustSplit {
				if err := e.store.DeleteInput(ctx, storage.SourceUUID(src.UUID()), in.UUID); err != nil && !errors.Is(err, storage.ErrInputDoesntExist) {
					return errors.Join(errors.New("failed to delete stale input from the manifest"), err)
				}
				in, _, err = e.store.GetOrCreateInput(ctx, storage.SourceUUID(src.UUID()), f.Path(), f.Etag(), e.version)
				if err != nil {
					return errors.Join(errors.New("error during stale input recreation in the manifest"), err)
				}
			}
		}

		if !mustSplit {
			log.Info("input already split, skipping")
			return nil
		}
		input = in
	}

	outDir := filepath.Join(e.outputRoot, filepath.FromSlash(path.Dir(f.Path())))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Join(errors.New("failed to create output directory"), err)
	}

	writer, err := chunk.NewWriter(outDir, chunk.WithRecordsPerFile(e.recordsPerFile))
	if err != nil {
		return err
	}

	records, err := Split(ctx, segment.New(io.MultiReader(bytes.NewReader(head[:readed]), f)), writer)
	if closeErr := writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, segment.ErrTruncatedRecord) {
			return errors.Join(errors.New("input is truncated or corrupt"), err)
		}
		return errors.Join(errors.New("failed to split input"), err)
	}

	if e.store != nil && input != nil {
		for i, info := range writer.Written() {
			if err := e.store.PutChunk(ctx, storage.SourceUUID(src.UUID()), input.UUID, i+1, info.Name, info.Records); err != nil {
				return errors.Join(errors.New("failed to record chunk in the manifest"), err)
			}
		}
		if err := e.store.FinishSplit(ctx, storage.SourceUUID(src.UUID()), input.UUID, records); err != nil {
			return errors.Join(errors.New("failed to finalize input in the manifest"), err)
		}
	}

	log.Info("split input", "records", records, "chunks", len(writer.Written()))
	return nil
}
