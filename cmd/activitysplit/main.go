// Command activitysplit splits one legacy-format activity HTML export
// into numbered files holding a bounded number of records each.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/takeoutkit/activitysplit"
	"github.com/takeoutkit/activitysplit/chunk"
	"github.com/takeoutkit/activitysplit/segment"
)

type flags struct {
	input     string
	count     int
	outputDir string
}

func parseFlags() (*flags, error) {
	var f flags
	flag.IntVar(&f.count, "count", chunk.DefaultRecordsPerFile, "how many records to put into each output file")
	flag.StringVar(&f.outputDir, "output", "", "output directory. if not specified, the directory of the input file is used")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return nil, errors.New("an input file is required")
	}
	f.input = flag.Arg(0)

	info, err := os.Stat(f.input)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("input file '%s' does not exist", f.input)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input file '%s' is a directory", f.input)
	}

	if f.outputDir == "" {
		absPath, err := filepath.Abs(f.input)
		if err != nil {
			return nil, err
		}
		f.outputDir = filepath.Dir(absPath)
	}

	if f.count < 1 {
		return nil, chunk.ErrInvalidRecordsPerFile
	}

	return &f, nil
}

func run() error {
	f, err := parseFlags()
	if err != nil {
		return err
	}

	input, err := os.Open(f.input)
	if err != nil {
		return err
	}
	defer input.Close()

	writer, err := chunk.NewWriter(f.outputDir, chunk.WithRecordsPerFile(f.count))
	if err != nil {
		return err
	}
	defer writer.Close()

	if _, err := activitysplit.Split(context.Background(), segment.New(input), writer); err != nil {
		return err
	}
	return writer.Close()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
