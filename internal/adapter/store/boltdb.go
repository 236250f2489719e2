package store

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"recipes/internal/domain"
)

var (
	bucketRecipes     = []byte("recipes")
	bucketIngredients = []byte("ingredients")
	bucketMeta        = []byte("meta")
)

// BoltStore keeps recipes in a single bbolt file. Keys of the recipes
// bucket are big-endian ids, so cursor order is ascending id order.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, domain.StorageError("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecipes, bucketIngredients, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, domain.StorageError("open", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// ingredientKey buckets ingredient lists by content hash; lookups confirm
// the text against the stored record.
func ingredientKey(text string) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, xxhash.Sum64String(text))
	return b
}

type recipeValue struct {
	Title       string `json:"title"`
	Ingredients string `json:"ingredients"`
	Directions  string `json:"directions"`
	Source      string `json:"source"`
}

// Insert stores recipes in one transaction and returns their new ids.
func (s *BoltStore) Insert(recipes []domain.Recipe) ([]int64, error) {
	ids := make([]int64, 0, len(recipes))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecipes)
		idx := tx.Bucket(bucketIngredients)
		for _, r := range recipes {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			id := int64(seq)
			data, err := json.Marshal(recipeValue{
				Title:       r.Title,
				Ingredients: r.Ingredients,
				Directions:  r.Directions,
				Source:      r.Source,
			})
			if err != nil {
				return err
			}
			if err := b.Put(itob(id), data); err != nil {
				return err
			}
			if err := addIngredientRef(idx, r.Ingredients, id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, domain.StorageError("insert", err)
	}
	return ids, nil
}

func addIngredientRef(idx *bbolt.Bucket, text string, id int64) error {
	key := ingredientKey(text)
	var refs []int64
	if existing := idx.Get(key); existing != nil {
		if err := json.Unmarshal(existing, &refs); err != nil {
			return err
		}
	}
	refs = append(refs, id)
	data, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	return idx.Put(key, data)
}

func (s *BoltStore) Get(id int64) (domain.Recipe, error) {
	var r domain.Recipe
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecipes).Get(itob(id))
		if data == nil {
			return fmt.Errorf("%w: %d", domain.ErrRecordNotFound, id)
		}
		var err error
		r, err = decodeRecipe(id, data)
		return err
	})
	return r, domain.StorageError("get", err)
}

func decodeRecipe(id int64, data []byte) (domain.Recipe, error) {
	var v recipeValue
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode recipe %d: %w", id, err)
	}
	return domain.Recipe{
		ID:          id,
		Title:       v.Title,
		Ingredients: v.Ingredients,
		Directions:  v.Directions,
		Source:      v.Source,
	}, nil
}

func (s *BoltStore) IDs() ([]int64, error) {
	var ids []int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecipes)
		ids = make([]int64, 0, b.Stats().KeyN)
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			ids = append(ids, btoi(k))
		}
		return nil
	})
	if err != nil {
		return nil, domain.StorageError("ids", err)
	}
	return ids, nil
}

func (s *BoltStore) Scan(fn func(domain.Recipe) error) error {
	var cbErr error
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecipes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			r, err := decodeRecipe(btoi(k), v)
			if err != nil {
				return err
			}
			if err := fn(r); err != nil {
				cbErr = err
				return err
			}
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}
	return domain.StorageError("scan", err)
}

func (s *BoltStore) FindByIngredients(text string) ([]int64, error) {
	var ids []int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIngredients).Get(ingredientKey(text))
		if data == nil {
			return nil
		}
		var refs []int64
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		recipes := tx.Bucket(bucketRecipes)
		for _, id := range refs {
			v := recipes.Get(itob(id))
			if v == nil {
				continue
			}
			r, err := decodeRecipe(id, v)
			if err != nil {
				return err
			}
			if r.Ingredients == text {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.StorageError("find", err)
	}
	return ids, nil
}

func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketRecipes).Stats().KeyN
		return nil
	})
	return n, domain.StorageError("count", err)
}

func (s *BoltStore) Stats() (domain.Stats, error) {
	var st domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecipes)
		st.Recipes = b.Stats().KeyN
		c := b.Cursor()
		if k, _ := c.First(); k != nil {
			st.MinID = btoi(k)
		}
		if k, _ := c.Last(); k != nil {
			st.MaxID = btoi(k)
		}
		return nil
	})
	return st, domain.StorageError("stats", err)
}

// Clear drops every recipe and restarts id assignment at 1. Schema info
// in the meta bucket is kept.
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRecipes, bucketIngredients} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	return domain.StorageError("clear", err)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// rebuildIngredientIndex recomputes the ingredient lookup bucket from the
// recipes bucket.
func (s *BoltStore) rebuildIngredientIndex() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketIngredients) != nil {
			if err := tx.DeleteBucket(bucketIngredients); err != nil {
				return err
			}
		}
		idx, err := tx.CreateBucket(bucketIngredients)
		if err != nil {
			return err
		}
		c := tx.Bucket(bucketRecipes).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			r, err := decodeRecipe(btoi(k), v)
			if err != nil {
				return err
			}
			if err := addIngredientRef(idx, r.Ingredients, r.ID); err != nil {
				return err
			}
		}
		return nil
	})
}
