package store

import (
	"testing"

	"go.etcd.io/bbolt"

	"recipes/config"
)

func TestCheckMigration_FreshStore(t *testing.T) {
	s := newTestBolt(t)
	cfg := config.DefaultConfig()

	res, err := CheckMigration(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsMigration || res.NeedsRebuild {
		t.Errorf("expected migration without rebuild, got %+v", res)
	}

	if err := Migrate(s, cfg); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	res, err = CheckMigration(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.NeedsMigration || res.NeedsRebuild {
		t.Errorf("expected up to date store, got %+v", res)
	}
}

func TestCheckMigration_ConfigChanged(t *testing.T) {
	s := newTestBolt(t)
	cfg := config.DefaultConfig()
	if err := Migrate(s, cfg); err != nil {
		t.Fatal(err)
	}

	cfg.Corpus.MinDirectionWords = 5
	res, err := CheckMigration(s, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsRebuild {
		t.Error("expected rebuild after filter change")
	}
}

func TestCheckMigration_NewerVersion(t *testing.T) {
	s := newTestBolt(t)
	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}

	res, err := CheckMigration(s, config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsRebuild {
		t.Errorf("expected rebuild for newer schema, got %+v", res)
	}
}

func TestMigrate_RebuildsIngredientIndex(t *testing.T) {
	s := newTestBolt(t)
	if _, err := s.Insert(sampleRecipes()); err != nil {
		t.Fatal(err)
	}

	// Simulate a v1 store that predates the ingredient index.
	err := s.DB().Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketIngredients); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketIngredients)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetSchemaInfo(&SchemaInfo{Version: 1}); err != nil {
		t.Fatal(err)
	}

	if err := Migrate(s, config.DefaultConfig()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	ids, err := s.FindByIngredients("beef, potato, onion")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("expected [2] after rebuild, got %v", ids)
	}

	info, _ := s.GetSchemaInfo()
	if info.Version != CurrentSchemaVersion {
		t.Errorf("expected version %d, got %d", CurrentSchemaVersion, info.Version)
	}
}

func TestComputeConfigHash(t *testing.T) {
	a := config.DefaultConfig()
	b := config.DefaultConfig()
	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("expected identical configs to hash the same")
	}

	b.Encoder.Dimension = 17
	if ComputeConfigHash(a) != ComputeConfigHash(b) {
		t.Error("encoder settings should not affect the store hash")
	}

	b.Corpus.MaxRecipes = 10
	if ComputeConfigHash(a) == ComputeConfigHash(b) {
		t.Error("expected corpus filter change to alter the hash")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
