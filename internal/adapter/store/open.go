package store

import (
	"fmt"

	"recipes/internal/domain"
	"recipes/internal/port"
)

const (
	DriverBolt   = "bolt"
	DriverDuckDB = "duckdb"
)

// Store is a record store that also tracks its schema version.
type Store interface {
	port.RecordStore
	Versioned
}

// Open opens the record store for driver at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverBolt, "":
		return NewBoltStore(path)
	case DriverDuckDB:
		return NewDuckDBStore(path)
	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", domain.ErrInvalidArgument, driver)
	}
}
