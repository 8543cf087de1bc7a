package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/takeoutkit/activitysplit/segment"
)

func testRecord(i int) segment.Record {
	raw := fmt.Sprintf("<div class=\"outer-cell\"><div>record %d</div></div>\n", i)
	return segment.Record{Raw: []byte(raw), Index: i}
}

func writeRecords(t *testing.T, writer *Writer, n int) []byte {
	t.Helper()

	var all bytes.Buffer
	for i := 0; i < n; i++ {
		record := testRecord(i)
		if err := writer.Append(record); err != nil {
			t.Fatalf("failed to append record %d: %v", i, err)
		}
		all.Write(record.Raw)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return all.Bytes()
}

func TestWriterRotation(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, WithRecordsPerFile(1000))
	if err != nil {
		t.Fatal(err.Error())
	}

	all := writeRecords(t, writer, 2500)

	wantFiles := []string{"MyActivity-0001.html", "MyActivity-0002.html", "MyActivity-0003.html"}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != len(wantFiles) {
		t.Fatalf("got %d output files, want %d", len(entries), len(wantFiles))
	}

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var concatenated bytes.Buffer
	for i, name := range names {
		if name != wantFiles[i] {
			t.Errorf("file %d is named %s, want %s", i, name, wantFiles[i])
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err.Error())
		}
		concatenated.Write(data)
	}

	if !bytes.Equal(concatenated.Bytes(), all) {
		t.Error("concatenating output files in order does not reproduce the record stream")
	}

	written := writer.Written()
	wantCounts := []int{1000, 1000, 500}
	if len(written) != len(wantCounts) {
		t.Fatalf("Written reports %d files, want %d", len(written), len(wantCounts))
	}
	for i, info := range written {
		if info.Name != wantFiles[i] {
			t.Errorf("Written[%d].Name = %s, want %s", i, info.Name, wantFiles[i])
		}
		if info.Records != wantCounts[i] {
			t.Errorf("Written[%d].Records = %d, want %d", i, info.Records, wantCounts[i])
		}
	}
}

func TestWriterOneRecordPerFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, WithRecordsPerFile(1))
	if err != nil {
		t.Fatal(err.Error())
	}

	writeRecords(t, writer, 5)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 5 {
		t.Fatalf("got %d output files, want 5", len(entries))
	}
	for _, info := range writer.Written() {
		if info.Records != 1 {
			t.Errorf("%s holds %d records, want 1", info.Name, info.Records)
		}
	}
}

func TestWriterNoRecordsNoFiles(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	if err != nil {
		t.Fatal(err.Error())
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err.Error())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 0 {
		t.Fatalf("empty record sequence produced %d files, want none", len(entries))
	}
	if len(writer.Written()) != 0 {
		t.Fatal("Written is not empty for an empty record sequence")
	}
}

func TestWriterRejectsInvalidRecordsPerFile(t *testing.T) {
	for _, n := range []int{0, -1, -1000} {
		if _, err := NewWriter(t.TempDir(), WithRecordsPerFile(n)); !errors.Is(err, ErrInvalidRecordsPerFile) {
			t.Errorf("recordsPerFile %d: got %v, want ErrInvalidRecordsPerFile", n, err)
		}
	}
}

func TestWriterCustomBaseName(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir, WithBaseName("Verlauf"))
	if err != nil {
		t.Fatal(err.Error())
	}
	writeRecords(t, writer, 1)

	if _, err := os.Stat(filepath.Join(dir, "Verlauf-0001.html")); err != nil {
		t.Fatalf("expected Verlauf-0001.html to exist: %v", err)
	}
}
