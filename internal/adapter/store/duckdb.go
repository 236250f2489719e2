package store

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/duckdb/duckdb-go/v2"

	"recipes/internal/domain"
)

const duckSchema = `
CREATE TABLE IF NOT EXISTS recipes (
	id          BIGINT PRIMARY KEY,
	title       VARCHAR,
	ingredients VARCHAR,
	directions  VARCHAR,
	source      VARCHAR
);
CREATE TABLE IF NOT EXISTS recipes_meta (
	key   VARCHAR PRIMARY KEY,
	value VARCHAR
);
`

const duckIngredientIndex = `CREATE INDEX IF NOT EXISTS idx_ingredients ON recipes(ingredients)`

// DuckDBStore keeps recipes in a DuckDB table with the same columns as
// the legacy SQLite database.
type DuckDBStore struct {
	db *sql.DB
}

func NewDuckDBStore(path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, domain.StorageError("open", fmt.Errorf("open duckdb: %w", err))
	}
	if _, err := db.Exec(duckSchema); err != nil {
		db.Close()
		return nil, domain.StorageError("open", fmt.Errorf("create schema: %w", err))
	}
	return &DuckDBStore{db: db}, nil
}

// Insert assigns ids after the current maximum inside one transaction.
func (s *DuckDBStore) Insert(recipes []domain.Recipe) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, domain.StorageError("insert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int64
	if err := tx.QueryRow("SELECT COALESCE(MAX(id), 0) FROM recipes").Scan(&next); err != nil {
		return nil, domain.StorageError("insert", err)
	}

	stmt, err := tx.Prepare("INSERT INTO recipes (id, title, ingredients, directions, source) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, domain.StorageError("insert", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(recipes))
	for _, r := range recipes {
		next++
		if _, err := stmt.Exec(next, r.Title, r.Ingredients, r.Directions, r.Source); err != nil {
			return nil, domain.StorageError("insert", err)
		}
		ids = append(ids, next)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.StorageError("insert", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (domain.Recipe, error) {
	var r domain.Recipe
	var title, ingredients, directions, source sql.NullString
	if err := row.Scan(&r.ID, &title, &ingredients, &directions, &source); err != nil {
		return r, err
	}
	r.Title = title.String
	r.Ingredients = ingredients.String
	r.Directions = directions.String
	r.Source = source.String
	return r, nil
}

func (s *DuckDBStore) Get(id int64) (domain.Recipe, error) {
	row := s.db.QueryRow("SELECT id, title, ingredients, directions, source FROM recipes WHERE id = ?", id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return r, fmt.Errorf("%w: %d", domain.ErrRecordNotFound, id)
	}
	return r, domain.StorageError("get", err)
}

func (s *DuckDBStore) IDs() ([]int64, error) {
	rows, err := s.db.Query("SELECT id FROM recipes ORDER BY id")
	if err != nil {
		return nil, domain.StorageError("ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.StorageError("ids", err)
		}
		ids = append(ids, id)
	}
	return ids, domain.StorageError("ids", rows.Err())
}

func (s *DuckDBStore) Scan(fn func(domain.Recipe) error) error {
	rows, err := s.db.Query("SELECT id, title, ingredients, directions, source FROM recipes ORDER BY id")
	if err != nil {
		return domain.StorageError("scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return domain.StorageError("scan", err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return domain.StorageError("scan", rows.Err())
}

func (s *DuckDBStore) FindByIngredients(text string) ([]int64, error) {
	rows, err := s.db.Query("SELECT id FROM recipes WHERE ingredients = ? ORDER BY id", text)
	if err != nil {
		return nil, domain.StorageError("find", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.StorageError("find", err)
		}
		ids = append(ids, id)
	}
	return ids, domain.StorageError("find", rows.Err())
}

func (s *DuckDBStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM recipes").Scan(&n)
	return n, domain.StorageError("count", err)
}

func (s *DuckDBStore) Stats() (domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRow("SELECT COUNT(*), COALESCE(MIN(id), 0), COALESCE(MAX(id), 0) FROM recipes").
		Scan(&st.Recipes, &st.MinID, &st.MaxID)
	return st, domain.StorageError("stats", err)
}

func (s *DuckDBStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM recipes")
	return domain.StorageError("clear", err)
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func (s *DuckDBStore) GetSchemaInfo() (*SchemaInfo, error) {
	info := &SchemaInfo{}
	rows, err := s.db.Query("SELECT key, value FROM recipes_meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		switch k {
		case string(keySchemaVersion):
			if n, err := strconv.Atoi(v); err == nil {
				info.Version = n
			} else {
				info.Version = 1
			}
		case string(keyConfigHash):
			info.ConfigHash = v
		}
	}
	return info, rows.Err()
}

func (s *DuckDBStore) SetSchemaInfo(info *SchemaInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for k, v := range map[string]string{
		string(keySchemaVersion): strconv.Itoa(info.Version),
		string(keyConfigHash):    info.ConfigHash,
	} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO recipes_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *DuckDBStore) runMigration(from, to int) error {
	switch {
	case from == 1 && to == 2, from == 0 && to == 1:
		_, err := s.db.Exec(duckIngredientIndex)
		return err
	default:
		return nil
	}
}
