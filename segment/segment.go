package segment

import (
	"errors"
	"fmt"
)

// Marker class on the top level container div of one activity record
// in the legacy export format.
const RecordClass = "outer-cell"

var ErrTruncatedRecord = errors.New("input ended while a record was still open")
var ErrNestedRecord = errors.New("found a record start tag while a record is already open")

// TokenizeError means the byte stream could not be tokenized. It is
// fatal, there is no recovery from a malformed source file.
type TokenizeError struct {
	Err error
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("failed to tokenize input: %s", e.Err)
}

func (e *TokenizeError) Unwrap() error {
	return e.Err
}

// Record is one complete outer-cell block, from its opening tag to its
// matching closing tag inclusive, copied verbatim from the source.
type Record struct {
	// Raw source bytes of the record plus a single trailing newline.
	Raw []byte
	// Position of the record in the source document, starting at 0.
	Index int
}

// Iterator yields the records of one input document in source order.
// The sequence is produced by a single forward pass and cannot be
// restarted without re-reading the input.
type Iterator interface {
	// Next returns the next record. If there are no records left,
	// returns [io.EOF].
	Next() (Record, error)
}
