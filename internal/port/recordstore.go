package port

import "recipes/internal/domain"

// RecordStore holds normalized recipes keyed by an auto-incrementing id.
// Failures other than a missing id surface as *domain.StorageAccessError.
type RecordStore interface {
	// Insert appends recipes in order and returns their assigned ids.
	Insert(recipes []domain.Recipe) ([]int64, error)

	// Get fetches one recipe. Missing ids return domain.ErrRecordNotFound.
	Get(id int64) (domain.Recipe, error)

	// IDs returns every known id in ascending order.
	IDs() ([]int64, error)

	// Scan visits every recipe in ascending id order.
	Scan(fn func(domain.Recipe) error) error

	// FindByIngredients returns ids whose ingredient text equals text exactly.
	FindByIngredients(text string) ([]int64, error)

	Count() (int, error)

	Stats() (domain.Stats, error)

	// Clear removes all recipes and resets id assignment.
	Clear() error

	Close() error
}
