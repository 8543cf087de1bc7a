// Package activitysplit rewrites huge legacy-format Google Takeout
// activity HTML exports as a sequence of smaller files with a bounded
// number of activity records each, so downstream parsers never have to
// hold the whole monolithic file in memory.
package activitysplit

import (
	"context"
	"io"

	"github.com/takeoutkit/activitysplit/chunk"
	"github.com/takeoutkit/activitysplit/segment"
)

// Split drains a record iterator into the chunk writer and returns the
// number of records that were written. The caller owns the writer and
// must close it.
func Split(ctx context.Context, records segment.Iterator, writer *chunk.Writer) (int, error) {
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		record, err := records.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		if err := writer.Append(record); err != nil {
			return count, err
		}
		count++
	}
}
