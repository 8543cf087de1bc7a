// Package postgres stores the split-run manifest in a PostgreSQL
// database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/takeoutkit/activitysplit/storage"
	"github.com/takeoutkit/activitysplit/storage/postgres/migrations"
)

type PostgresStorage struct {
	db *sql.DB

	databaseName   string
	databaseSchema string
	tablePrefix    string

	sourceTable string
	inputTable  string
	chunkTable  string
}

func NewPostgresStorage(db *sql.DB, options ...PostgresOption) PostgresStorage {
	storage := PostgresStorage{
		db:             db,
		databaseName:   "postgres",
		databaseSchema: "public",
		tablePrefix:    "activitysplit_",
	}

	for _, option := range options {
		option(&storage)
	}

	storage.sourceTable = fmt.Sprintf("%s.%ssource", storage.databaseSchema, storage.tablePrefix)
	storage.inputTable = fmt.Sprintf("%s.%sinput", storage.databaseSchema, storage.tablePrefix)
	storage.chunkTable = fmt.Sprintf("%s.%schunk", storage.databaseSchema, storage.tablePrefix)

	return storage
}

func (s *PostgresStorage) migrator() (*migrate.Migrate, error) {
	migrationFiles, err := migrations.PrepareMigrations(s.databaseSchema, s.tablePrefix)
	if err != nil {
		return nil, errors.Join(errors.New("failed to prepare migration files"), err)
	}

	driver, err := migratepostgres.WithInstance(s.db, &migratepostgres.Config{
		SchemaName:      s.databaseSchema,
		MigrationsTable: fmt.Sprintf("%smigrations", s.tablePrefix),
	})
	if err != nil {
		return nil, errors.Join(errors.New("failed to create postgres migration driver"), err)
	}

	migrationsSource, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return nil, errors.Join(errors.New("failed to open postgres migrations source"), err)
	}

	migrator, err := migrate.NewWithInstance("migrations", migrationsSource, s.databaseName, driver)
	if err != nil {
		return nil, errors.Join(errors.New("failed to create migrator"), err)
	}

	return migrator, nil
}

// Install makes sure all manifest tables exist. Safe to run several
// times.
func (s *PostgresStorage) Install(ctx context.Context) error {
	migrator, err := s.migrator()
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Join(errors.New("error while performing migration on the database"), err)
	}

	return nil
}

// UnInstall completely removes the manifest from the database.
func (s *PostgresStorage) UnInstall(ctx context.Context) error {
	migrator, err := s.migrator()
	if err != nil {
		return err
	}

	if err := migrator.Down(); err != nil {
		return errors.Join(errors.New("error while performing down migration on the database"), err)
	}

	if _, err := s.db.Exec("DROP TABLE " + fmt.Sprintf("%s.%smigrations", s.databaseSchema, s.tablePrefix)); err != nil {
		return errors.Join(errors.New("failed to drop migrations table"), err)
	}

	return nil
}

func (s *PostgresStorage) GetOrCreateSource(ctx context.Context, sourceUUID storage.SourceUUID) (*storage.DataSource, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			uuid
		)
		VALUES ($1)
		ON CONFLICT (uuid) DO UPDATE SET uuid = $1
		RETURNING source_id
	`, s.sourceTable)
	var sourceID int
	if err := s.db.QueryRowContext(ctx, query, sourceUUID).Scan(&sourceID); err != nil {
		return nil, errors.Join(errors.New("failed to insert new source to the database"), err)
	}

	return &storage.DataSource{
		UUID: sourceUUID,
	}, nil
}

func (s *PostgresStorage) DeleteSource(ctx context.Context, sourceUUID storage.SourceUUID) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE uuid = $1
		RETURNING uuid
	`, s.sourceTable)
	var returnedUUID storage.SourceUUID
	if err := s.db.QueryRowContext(ctx, query, sourceUUID).Scan(&returnedUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrSourceDoesntExist
		}

		return errors.Join(errors.New("failed to delete data source from the database"), err)
	}

	return nil
}

func (s *PostgresStorage) GetOrCreateInput(ctx context.Context, sourceUUID storage.SourceUUID, path string, eTag string, version storage.SplitterVersion) (*storage.Input, bool, error) {
	query := fmt.Sprintf(`
		WITH source_lookup AS (
			SELECT source_id
			FROM %s
			WHERE uuid = $1
		), ins AS (
			INSERT INTO %s (
				source_id,
				path,
				etag,
				version_major,
				version_minor
			)
			SELECT source_lookup.source_id, $2, $3, $4, $5 FROM source_lookup
			ON CONFLICT(source_id, path) DO NOTHING
			RETURNING input_id, etag, version_major, version_minor, records, created_at, split_finished, true AS inserted
		)
		SELECT * FROM ins
		UNION ALL
		SELECT input_id, etag, version_major, version_minor, records, created_at, split_finished, false AS inserted
		FROM %s f
		JOIN %s s ON f.source_id = s.source_id
		WHERE NOT EXISTS (SELECT 1 FROM ins) AND s.uuid = $1 AND path = $2;
	`, s.sourceTable, s.inputTable, s.inputTable, s.sourceTable)
	var inputID uint64
	var currentETag string
	var currentVersion storage.SplitterVersion
	var records int
	var createdAt time.Time
	var splitFinished *time.Time
	var inserted bool
	if err := s.db.QueryRowContext(ctx, query, sourceUUID, path, eTag, version.Major, version.Minor).Scan(&inputID, &currentETag, &currentVersion.Major, &currentVersion.Minor, &records, &createdAt, &splitFinished, &inserted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrSourceDoesntExist
		}

		return nil, false, errors.Join(errors.New("failed to get or create input in the database"), err)
	}

	return &storage.Input{
		Source: storage.DataSource{
			UUID: sourceUUID,
		},
		UUID:            storage.InputUUID(fmt.Sprintf("%d", inputID)),
		ETag:            currentETag,
		Path:            path,
		Records:         records,
		CreatedAt:       createdAt,
		SplitterVersion: currentVersion,
		SplitFinished:   splitFinished,
	}, inserted, nil
}

func (s *PostgresStorage) DeleteInput(ctx context.Context, sourceUUID storage.SourceUUID, input storage.InputUUID) error {
	inputID, err := strconv.Atoi(string(input))
	if err != nil {
		return storage.ErrInputDoesntExist
	}

	query := fmt.Sprintf(`
		DELETE FROM %s f
		USING %s s
		WHERE f.source_id = s.source_id AND s.uuid = $1 AND f.input_id = $2
		RETURNING f.input_id
	`, s.inputTable, s.sourceTable)
	var returnedID uint64
	if err := s.db.QueryRowContext(ctx, query, sourceUUID, inputID).Scan(&returnedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrInputDoesntExist
		}

		return errors.Join(errors.New("failed to delete input from the database"), err)
	}

	return nil
}

func (s *PostgresStorage) PutChunk(ctx context.Context, sourceUUID storage.SourceUUID, input storage.InputUUID, seq int, name string, records int) error {
	inputID, err := strconv.Atoi(string(input))
	if err != nil {
		return storage.ErrInputDoesntExist
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			input_id,
			seq,
			file_name,
			records
		)
		SELECT f.input_id, $3, $4, $5
		FROM %s f
		JOIN %s s ON f.source_id = s.source_id
		WHERE s.uuid = $1 AND f.input_id = $2
		ON CONFLICT (input_id, seq) DO UPDATE SET file_name = EXCLUDED.file_name, records = EXCLUDED.records
		RETURNING chunk_id
	`, s.chunkTable, s.inputTable, s.sourceTable)
	var chunkID uint64
	if err := s.db.QueryRowContext(ctx, query, sourceUUID, inputID, seq, name, records).Scan(&chunkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrInputDoesntExist
		}

		return errors.Join(errors.New("failed to record chunk in the database"), err)
	}

	return nil
}

func (s *PostgresStorage) ListChunks(ctx context.Context, sourceUUID storage.SourceUUID, input storage.InputUUID) ([]storage.Chunk, error) {
	inputID, err := strconv.Atoi(string(input))
	if err != nil {
		return nil, storage.ErrInputDoesntExist
	}

	query := fmt.Sprintf(`
		SELECT c.seq, c.file_name, c.records
		FROM %s c
		JOIN %s f ON c.input_id = f.input_id
		JOIN %s s ON f.source_id = s.source_id
		WHERE s.uuid = $1 AND f.input_id = $2
		ORDER BY c.seq
	`, s.chunkTable, s.inputTable, s.sourceTable)
	rows, err := s.db.QueryContext(ctx, query, sourceUUID, inputID)
	if err != nil {
		return nil, errors.Join(errors.New("failed to list chunks from the database"), err)
	}
	defer rows.Close()

	var chunks []storage.Chunk
	for rows.Next() {
		chunk := storage.Chunk{Input: input}
		if err := rows.Scan(&chunk.Seq, &chunk.Name, &chunk.Records); err != nil {
			return nil, errors.Join(errors.New("failed to scan chunk row"), err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(errors.New("error while iterating over chunk rows"), err)
	}

	return chunks, nil
}

func (s *PostgresStorage) FinishSplit(ctx context.Context, sourceUUID storage.SourceUUID, input storage.InputUUID, records int) error {
	inputID, err := strconv.Atoi(string(input))
	if err != nil {
		return storage.ErrInputDoesntExist
	}

	query := fmt.Sprintf(`
		UPDATE %s f
		SET records = $3, split_finished = now()
		FROM %s s
		WHERE f.source_id = s.source_id AND s.uuid = $1 AND f.input_id = $2
		RETURNING f.input_id
	`, s.inputTable, s.sourceTable)
	var returnedID uint64
	if err := s.db.QueryRowContext(ctx, query, sourceUUID, inputID, records).Scan(&returnedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrInputDoesntExist
		}

		return errors.Join(errors.New("failed to finalize input split in the database"), err)
	}

	return nil
}
