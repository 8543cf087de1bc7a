package chunk

type Option func(w *Writer)

// WithRecordsPerFile overrides how many records are grouped into one
// output file. Values below 1 make NewWriter fail.
func WithRecordsPerFile(n int) Option {
	return func(w *Writer) {
		w.recordsPerFile = n
	}
}

// WithBaseName overrides the fixed base of the output file names.
func WithBaseName(name string) Option {
	return func(w *Writer) {
		w.baseName = name
	}
}
