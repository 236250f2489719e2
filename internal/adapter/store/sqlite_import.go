package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"recipes/internal/domain"
)

// SQLiteReader reads a recipes.db produced by the earlier preprocessing
// pipeline. It attaches the file through DuckDB's sqlite_scanner
// extension, so no SQLite driver is linked in.
type SQLiteReader struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteReader opens an in-memory DuckDB and attaches dbPath.
func NewSQLiteReader(dbPath string) (*SQLiteReader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if err := loadSQLiteExtension(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("load sqlite extension: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "CALL sqlite_attach(?)", dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite_attach: %w", err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'recipes'",
	).Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("check table recipes: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("table recipes not found in %s", dbPath)
	}

	return &SQLiteReader{db: db, dbPath: dbPath}, nil
}

// loadSQLiteExtension installs and loads the sqlite_scanner extension.
func loadSQLiteExtension(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "INSTALL sqlite_scanner;"); err != nil {
		// Already installed or offline; a plain LOAD may still work.
		if _, loadErr := db.ExecContext(ctx, "LOAD sqlite_scanner;"); loadErr != nil {
			return fmt.Errorf("install error: %w, load error: %w", err, loadErr)
		}
		return nil
	}

	_, err := db.ExecContext(ctx, "LOAD sqlite_scanner;")
	return err
}

func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

// CountRecords returns the number of rows in the legacy recipes table.
func (r *SQLiteReader) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recipes").Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ReadBatch returns up to limit rows with id greater than sinceID in
// ascending id order. The returned ids are the legacy ids.
func (r *SQLiteReader) ReadBatch(ctx context.Context, sinceID int64, limit int) ([]domain.Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, ingredients, directions, source FROM recipes WHERE id > ? ORDER BY id LIMIT ?",
		sinceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read batch after %d: %w", sinceID, err)
	}
	defer rows.Close()

	var out []domain.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legacy recipe: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
