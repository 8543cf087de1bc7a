package segment

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Segmenter assembles complete records out of the token stream of a
// legacy HTML activity export. Everything between records (page
// headers, navigation, scripts) is dropped, so memory usage is bounded
// by the largest single record no matter how big the input file is.
type Segmenter struct {
	z        *html.Tokenizer
	buf      bytes.Buffer
	divDepth int
	inRecord bool
	index    int
	err      error
}

func New(r io.Reader) *Segmenter {
	return &Segmenter{z: html.NewTokenizer(r)}
}

func hasClass(token html.Token, class string) bool {
	for _, attr := range token.Attr {
		if attr.Key == "class" && strings.Contains(attr.Val, class) {
			return true
		}
	}
	return false
}

// Next returns the next record in document order, or [io.EOF] once the
// input is exhausted. After any error the segmenter is dead and keeps
// returning the same error.
func (s *Segmenter) Next() (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}

	for {
		tt := s.z.Next()
		switch tt {
		case html.ErrorToken:
			if s.z.Err() == io.EOF {
				if s.buf.Len() > 0 {
					s.err = ErrTruncatedRecord
					return Record{}, s.err
				}
				s.err = io.EOF
				return Record{}, s.err
			}
			s.err = &TokenizeError{Err: s.z.Err()}
			return Record{}, s.err

		case html.DoctypeToken, html.CommentToken:
			// never part of a record, even while one is open

		case html.StartTagToken:
			t := s.z.Token()
			if t.Data == "div" && hasClass(t, RecordClass) {
				if s.inRecord {
					s.err = ErrNestedRecord
					return Record{}, s.err
				}
				s.inRecord = true
			}
			if s.inRecord {
				s.buf.Write(s.z.Raw())
				if t.Data == "div" {
					s.divDepth++
				}
			}

		case html.EndTagToken:
			t := s.z.Token()
			if s.inRecord && s.divDepth == 1 {
				// Any end tag closes the record once exactly one div is
				// open, not only </div>. The export always nests another
				// div before an inline element closes at this level, so
				// the shortcut holds there. Do not generalize it: an
				// input closing an inline element directly under the
				// outer div is an open question, not a bug to fix here.
				s.buf.Write(s.z.Raw())
				s.buf.WriteByte('\n')
				record := Record{Raw: bytes.Clone(s.buf.Bytes()), Index: s.index}
				s.buf.Reset()
				s.inRecord = false
				s.divDepth = 0
				s.index++
				return record, nil
			}
			if s.inRecord {
				if t.Data == "div" {
					s.divDepth--
				}
				s.buf.Write(s.z.Raw())
			}

		case html.SelfClosingTagToken, html.TextToken:
			if s.inRecord {
				s.buf.Write(s.z.Raw())
			}
		}
	}
}
