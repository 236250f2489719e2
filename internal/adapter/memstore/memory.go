package memstore

import (
	"fmt"
	"sort"
	"sync"

	"recipes/internal/domain"
)

// MemoryStore is an in-process record store, used by tests and by
// pipelines that never touch disk.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[int64]domain.Recipe
	byText  map[string][]int64
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipes: make(map[int64]domain.Recipe),
		byText:  make(map[string][]int64),
	}
}

func (s *MemoryStore) Insert(recipes []domain.Recipe) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(recipes))
	for _, r := range recipes {
		s.nextID++
		r.ID = s.nextID
		s.recipes[r.ID] = r
		s.byText[r.Ingredients] = append(s.byText[r.Ingredients], r.ID)
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *MemoryStore) Get(id int64) (domain.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return domain.Recipe{}, fmt.Errorf("%w: %d", domain.ErrRecordNotFound, id)
	}
	return r, nil
}

// Delete removes one recipe. Missing ids are ignored.
func (s *MemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return
	}
	delete(s.recipes, id)
	refs := s.byText[r.Ingredients]
	for i, ref := range refs {
		if ref == id {
			s.byText[r.Ingredients] = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	if len(s.byText[r.Ingredients]) == 0 {
		delete(s.byText, r.Ingredients)
	}
}

func (s *MemoryStore) IDs() ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedIDs(), nil
}

func (s *MemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.recipes))
	for id := range s.recipes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Scan visits a snapshot, so fn may call back into the store.
func (s *MemoryStore) Scan(fn func(domain.Recipe) error) error {
	s.mu.RLock()
	ids := s.sortedIDs()
	snapshot := make([]domain.Recipe, len(ids))
	for i, id := range ids {
		snapshot[i] = s.recipes[id]
	}
	s.mu.RUnlock()

	for _, r := range snapshot {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) FindByIngredients(text string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.byText[text]
	out := make([]int64, len(refs))
	copy(out, refs)
	return out, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes), nil
}

func (s *MemoryStore) Stats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := domain.Stats{Recipes: len(s.recipes)}
	for id := range s.recipes {
		if st.MinID == 0 || id < st.MinID {
			st.MinID = id
		}
		if id > st.MaxID {
			st.MaxID = id
		}
	}
	return st, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = make(map[int64]domain.Recipe)
	s.byText = make(map[string][]int64)
	s.nextID = 0
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
