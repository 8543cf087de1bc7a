package postgres

import (
	"math/rand"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/takeoutkit/activitysplit/storage"
)

func randSchemaName(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

func getTestingStorage(t *testing.T, options ...PostgresOption) *PostgresStorage {
	dbURL := os.Getenv("TEST_STORAGE_POSTGRES_DBURL")
	if dbURL == "" {
		t.Skip("TEST_STORAGE_POSTGRES_DBURL is not configured")
	}

	cfg, err := pgx.ParseConfig(dbURL)
	if err != nil {
		t.Fatal(err.Error())
	}

	db := stdlib.OpenDB(*cfg)
	t.Cleanup(func() {
		db.Close()
	})

	schemaName := randSchemaName(32)
	if _, err := db.ExecContext(t.Context(), "CREATE SCHEMA "+schemaName); err != nil {
		t.Fatal(err.Error())
	}
	t.Cleanup(func() {
		db.ExecContext(t.Context(), "DROP SCHEMA "+schemaName+" CASCADE")
	})

	options = append([]PostgresOption{WithDatabaseSchema(schemaName)}, options...)
	manifest := NewPostgresStorage(db, options...)
	t.Cleanup(func() {
		manifest.UnInstall(t.Context())
	})

	if err := manifest.Install(t.Context()); err != nil {
		t.Fatal(err.Error())
	}

	return &manifest
}

func TestInstallIsIdempotent(t *testing.T) {
	manifest := getTestingStorage(t)
	if err := manifest.Install(t.Context()); err != nil {
		t.Fatalf("second Install failed: %v", err)
	}
	if _, err := manifest.GetOrCreateSource(t.Context(), "takeout-a"); err != nil {
		t.Fatal(err.Error())
	}
}

func TestGetOrCreateSource(t *testing.T) {
	manifest := getTestingStorage(t)

	first, err := manifest.GetOrCreateSource(t.Context(), "takeout-a")
	if err != nil {
		t.Fatal(err.Error())
	}
	second, err := manifest.GetOrCreateSource(t.Context(), "takeout-a")
	if err != nil {
		t.Fatal(err.Error())
	}
	if first.UUID != second.UUID {
		t.Fatalf("source uuid changed between calls: %s != %s", first.UUID, second.UUID)
	}
}

func TestGetOrCreateInput(t *testing.T) {
	manifest := getTestingStorage(t)

	if _, err := manifest.GetOrCreateSource(t.Context(), "takeout-a"); err != nil {
		t.Fatal(err.Error())
	}

	version := storage.SplitterVersion{Major: 1}
	input, created, err := manifest.GetOrCreateInput(t.Context(), "takeout-a", "My Activity/Search/MyActivity.html", "etag-1", version)
	if err != nil {
		t.Fatal(err.Error())
	}
	if !created {
		t.Fatal("first GetOrCreateInput did not report creation")
	}
	if input.SplitFinished != nil {
		t.Fatal("fresh input is already marked finished")
	}

	again, created, err := manifest.GetOrCreateInput(t.Context(), "takeout-a", "My Activity/Search/MyActivity.html", "etag-2", version)
	if err != nil {
		t.Fatal(err.Error())
	}
	if created {
		t.Fatal("second GetOrCreateInput reported creation")
	}
	if again.UUID != input.UUID {
		t.Fatalf("input uuid changed between calls: %s != %s", input.UUID, again.UUID)
	}
	if again.ETag != "etag-1" {
		t.Fatalf("existing input returned etag %s, want the stored etag-1", again.ETag)
	}
}

func TestGetOrCreateInputUnknownSource(t *testing.T) {
	manifest := getTestingStorage(t)

	_, _, err := manifest.GetOrCreateInput(t.Context(), "nope", "x.html", "etag", storage.SplitterVersion{})
	if err != storage.ErrSourceDoesntExist {
		t.Fatalf("got %v, want ErrSourceDoesntExist", err)
	}
}

func TestChunksAndFinishSplit(t *testing.T) {
	manifest := getTestingStorage(t)

	if _, err := manifest.GetOrCreateSource(t.Context(), "takeout-a"); err != nil {
		t.Fatal(err.Error())
	}
	input, _, err := manifest.GetOrCreateInput(t.Context(), "takeout-a", "My Activity/Search/MyActivity.html", "etag-1", storage.SplitterVersion{Major: 1})
	if err != nil {
		t.Fatal(err.Error())
	}

	if err := manifest.PutChunk(t.Context(), "takeout-a", input.UUID, 1, "MyActivity-0001.html", 1000); err != nil {
		t.Fatal(err.Error())
	}
	if err := manifest.PutChunk(t.Context(), "takeout-a", input.UUID, 2, "MyActivity-0002.html", 500); err != nil {
		t.Fatal(err.Error())
	}
	if err := manifest.FinishSplit(t.Context(), "takeout-a", input.UUID, 1500); err != nil {
		t.Fatal(err.Error())
	}

	chunks, err := manifest.ListChunks(t.Context(), "takeout-a", input.UUID)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Seq != 1 || chunks[0].Name != "MyActivity-0001.html" || chunks[0].Records != 1000 {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Seq != 2 || chunks[1].Name != "MyActivity-0002.html" || chunks[1].Records != 500 {
		t.Errorf("unexpected second chunk: %+v", chunks[1])
	}

	finished, created, err := manifest.GetOrCreateInput(t.Context(), "takeout-a", "My Activity/Search/MyActivity.html", "etag-1", storage.SplitterVersion{Major: 1})
	if err != nil {
		t.Fatal(err.Error())
	}
	if created {
		t.Fatal("finished input was recreated")
	}
	if finished.SplitFinished == nil {
		t.Fatal("input is not marked finished after FinishSplit")
	}
	if finished.Records != 1500 {
		t.Fatalf("finished input holds %d records, want 1500", finished.Records)
	}
}

func TestDeleteInput(t *testing.T) {
	manifest := getTestingStorage(t)

	if _, err := manifest.GetOrCreateSource(t.Context(), "takeout-a"); err != nil {
		t.Fatal(err.Error())
	}
	input, _, err := manifest.GetOrCreateInput(t.Context(), "takeout-a", "x.html", "etag-1", storage.SplitterVersion{})
	if err != nil {
		t.Fatal(err.Error())
	}

	if err := manifest.DeleteInput(t.Context(), "takeout-a", input.UUID); err != nil {
		t.Fatal(err.Error())
	}
	if err := manifest.DeleteInput(t.Context(), "takeout-a", input.UUID); err != storage.ErrInputDoesntExist {
		t.Fatalf("got %v, want ErrInputDoesntExist", err)
	}
}
