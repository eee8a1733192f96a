package kintostore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const walJournalSizeLimit = 67108864 // 64 MiB, matches WAL journal cap used elsewhere in the pack

// SQLiteAdapter is a durable Adapter backed by modernc.org/sqlite. A single
// database file can back many (bucket, collection) pairs; each SQLiteAdapter
// instance is scoped to one pair by construction.
type SQLiteAdapter struct {
	db         *sql.DB
	logger     *slog.Logger
	bucket     string
	collection string

	stmts statements
}

type statements struct {
	get, upsert, delete, list, deleteAll *sql.Stmt
	getMeta, saveMeta, deleteMeta        *sql.Stmt
}

// NewSQLiteAdapter opens (creating if necessary) the database at dbPath,
// applies pending migrations, and returns an Adapter scoped to
// (bucket, collection). Use ":memory:" for tests.
func NewSQLiteAdapter(ctx context.Context, dbPath, bucket, collection string, logger *slog.Logger) (*SQLiteAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("kintostore: opening sqlite adapter", "path", dbPath, "bucket", bucket, "collection", collection)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap("open", err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	a := &SQLiteAdapter{db: db, logger: logger, bucket: bucket, collection: collection}

	if err := a.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return wrap("pragma", err)
		}
	}

	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return wrap("migrate", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return wrap("migrate", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return wrap("migrate", err)
	}

	return nil
}

func (a *SQLiteAdapter) prepareStatements(ctx context.Context) error {
	var err error

	prep := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}

		var stmt *sql.Stmt
		stmt, err = a.db.PrepareContext(ctx, query)

		return stmt
	}

	a.stmts.get = prep(`SELECT data, status, last_modified FROM records WHERE bucket = ? AND collection = ? AND id = ?`)
	a.stmts.upsert = prep(`INSERT INTO records (bucket, collection, id, data, status, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket, collection, id) DO UPDATE SET data = excluded.data, status = excluded.status, last_modified = excluded.last_modified`)
	a.stmts.delete = prep(`DELETE FROM records WHERE bucket = ? AND collection = ? AND id = ?`)
	a.stmts.list = prep(`SELECT data, status, last_modified FROM records WHERE bucket = ? AND collection = ?`)
	a.stmts.deleteAll = prep(`DELETE FROM records WHERE bucket = ? AND collection = ?`)
	a.stmts.getMeta = prep(`SELECT last_modified FROM collection_meta WHERE bucket = ? AND collection = ?`)
	a.stmts.saveMeta = prep(`INSERT INTO collection_meta (bucket, collection, last_modified) VALUES (?, ?, ?)
		ON CONFLICT (bucket, collection) DO UPDATE SET last_modified = excluded.last_modified`)
	a.stmts.deleteMeta = prep(`DELETE FROM collection_meta WHERE bucket = ? AND collection = ?`)

	if err != nil {
		return wrap("prepare", err)
	}

	return nil
}

// Close releases the underlying database connection.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

func (a *SQLiteAdapter) rowToRecord(data string, status string, lastModified sql.NullInt64) (record.Record, error) {
	var r record.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, wrap("decode", err)
	}

	if status != "" {
		r[record.FieldStatus] = status
	}

	if lastModified.Valid {
		r[record.FieldLastModified] = lastModified.Int64
	}

	return r, nil
}

// Clear implements Adapter.
func (a *SQLiteAdapter) Clear(ctx context.Context) error {
	if _, err := a.stmts.deleteAll.ExecContext(ctx, a.bucket, a.collection); err != nil {
		return wrap("clear", err)
	}

	if _, err := a.stmts.deleteMeta.ExecContext(ctx, a.bucket, a.collection); err != nil {
		return wrap("clear", err)
	}

	return nil
}

// Create implements Adapter.
func (a *SQLiteAdapter) Create(ctx context.Context, r record.Record) (record.Record, error) {
	existing, err := a.Get(ctx, r.ID())
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, wrap("create", fmt.Errorf("record %q already exists", r.ID()))
	}

	return a.upsert(ctx, r)
}

// Update implements Adapter.
func (a *SQLiteAdapter) Update(ctx context.Context, r record.Record) (record.Record, error) {
	return a.upsert(ctx, r)
}

func (a *SQLiteAdapter) upsert(ctx context.Context, r record.Record) (record.Record, error) {
	clean := r.Clone()
	status := string(r.Status())
	delete(clean, record.FieldStatus)

	var lastModified sql.NullInt64
	if ts, ok := r.LastModified(); ok {
		lastModified = sql.NullInt64{Int64: ts, Valid: true}
	}

	delete(clean, record.FieldLastModified)

	data, err := json.Marshal(clean)
	if err != nil {
		return nil, wrap("encode", err)
	}

	if _, err := a.stmts.upsert.ExecContext(ctx, a.bucket, a.collection, r.ID(), string(data), status, lastModified); err != nil {
		return nil, wrap("upsert", err)
	}

	return a.Get(ctx, r.ID())
}

// Get implements Adapter.
func (a *SQLiteAdapter) Get(ctx context.Context, id string) (record.Record, error) {
	var data, status string

	var lastModified sql.NullInt64

	err := a.stmts.get.QueryRowContext(ctx, a.bucket, a.collection, id).Scan(&data, &status, &lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, wrap("get", err)
	}

	return a.rowToRecord(data, status, lastModified)
}

// Delete implements Adapter.
func (a *SQLiteAdapter) Delete(ctx context.Context, id string) (string, error) {
	if _, err := a.stmts.delete.ExecContext(ctx, a.bucket, a.collection, id); err != nil {
		return "", wrap("delete", err)
	}

	return id, nil
}

// List implements Adapter.
func (a *SQLiteAdapter) List(ctx context.Context) ([]record.Record, error) {
	rows, err := a.stmts.list.QueryContext(ctx, a.bucket, a.collection)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []record.Record

	for rows.Next() {
		var data, status string

		var lastModified sql.NullInt64

		if err := rows.Scan(&data, &status, &lastModified); err != nil {
			return nil, wrap("list", err)
		}

		r, err := a.rowToRecord(data, status, lastModified)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}

	return out, nil
}

// SaveLastModified implements Adapter.
func (a *SQLiteAdapter) SaveLastModified(ctx context.Context, n *int64) (*int64, error) {
	if n == nil {
		if _, err := a.stmts.deleteMeta.ExecContext(ctx, a.bucket, a.collection); err != nil {
			return nil, wrap("saveLastModified", err)
		}

		return nil, nil
	}

	if _, err := a.stmts.saveMeta.ExecContext(ctx, a.bucket, a.collection, *n); err != nil {
		return nil, wrap("saveLastModified", err)
	}

	return n, nil
}

// GetLastModified implements Adapter.
func (a *SQLiteAdapter) GetLastModified(ctx context.Context) (*int64, error) {
	var lastModified sql.NullInt64

	err := a.stmts.getMeta.QueryRowContext(ctx, a.bucket, a.collection).Scan(&lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, wrap("getLastModified", err)
	}

	if !lastModified.Valid {
		return nil, nil
	}

	return &lastModified.Int64, nil
}
