// Package bundle persists a trained recommender: the fitted encoder, the
// neighbor index rows and the row to recipe id mapping.
package bundle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"recipes/internal/adapter/encoder"
	"recipes/internal/adapter/knn"
	"recipes/internal/domain"
)

// FormatVersion is bumped whenever the payload layout changes.
const FormatVersion = 1

const lockTimeout = 30 * time.Second

// Bundle is everything needed to answer queries without re-training.
type Bundle struct {
	FormatVersion int           `json:"format_version"`
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	Encoder       encoder.State `json:"encoder"`
	Index         knn.State     `json:"index"`
	Mapping       []int64       `json:"mapping"`
}

// envelope wraps the payload with a checksum so truncated or edited
// files are rejected before any state is rebuilt.
type envelope struct {
	FormatVersion int             `json:"format_version"`
	Fingerprint   string          `json:"fingerprint"`
	Payload       json.RawMessage `json:"payload"`
}

// New assembles a bundle from trained components.
func New(enc encoder.Stateful, idx *knn.BruteForce, mapping []int64) (*Bundle, error) {
	if idx.Rows() != len(mapping) {
		return nil, fmt.Errorf("%w: %d index rows but %d mapped ids", domain.ErrInvalidArgument, idx.Rows(), len(mapping))
	}
	return &Bundle{
		FormatVersion: FormatVersion,
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		Encoder:       enc.State(),
		Index:         idx.State(),
		Mapping:       mapping,
	}, nil
}

func fingerprint(payload []byte) string {
	return strconv.FormatUint(xxhash.Sum64(payload), 16)
}

// Save writes the bundle atomically: a temp file in the same directory
// is synced and renamed over path while holding path.lock.
func Save(path string, b *Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	unlock, err := acquireLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	env, err := json.Marshal(envelope{
		FormatVersion: b.FormatVersion,
		Fingerprint:   fingerprint(payload),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw, err := gzip.NewWriterLevel(tmp, gzip.BestSpeed)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := zw.Write(env); err != nil {
		tmp.Close()
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install bundle: %w", err)
	}
	return nil
}

// Load reads and verifies a bundle written by Save. It takes no lock and
// writes nothing: Save installs bundles by rename, so a reader sees either
// the previous file or the complete new one.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBundleCorrupt, err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBundleCorrupt, err)
	}
	return decode(buf.Bytes())
}

func decode(data []byte) (*Bundle, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBundleCorrupt, err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrBundleVersion, env.FormatVersion, FormatVersion)
	}
	if got := fingerprint(env.Payload); got != env.Fingerprint {
		return nil, fmt.Errorf("%w: fingerprint %s does not match %s", domain.ErrBundleCorrupt, got, env.Fingerprint)
	}

	var b Bundle
	if err := json.Unmarshal(env.Payload, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBundleCorrupt, err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) validate() error {
	if len(b.Mapping) != len(b.Index.Rows) {
		return fmt.Errorf("%w: %d index rows but %d mapped ids", domain.ErrBundleCorrupt, len(b.Index.Rows), len(b.Mapping))
	}
	if b.Encoder.Dimension != b.Index.Dimension {
		return fmt.Errorf("%w: encoder dimension %d, index dimension %d", domain.ErrBundleCorrupt, b.Encoder.Dimension, b.Index.Dimension)
	}
	return nil
}

// Model rebuilds the encoder and the index. workers bounds the query
// fan-out; zero means GOMAXPROCS.
func (b *Bundle) Model(workers int) (encoder.Stateful, *knn.BruteForce, error) {
	enc, err := encoder.FromState(b.Encoder)
	if err != nil {
		return nil, nil, err
	}
	idx, err := knn.FromState(b.Index, workers)
	if err != nil {
		return nil, nil, err
	}
	if enc.Dimension() != idx.Dimension() {
		return nil, nil, fmt.Errorf("%w: encoder dimension %d, index dimension %d", domain.ErrBundleCorrupt, enc.Dimension(), idx.Dimension())
	}
	return enc, idx, nil
}

func acquireLock(path string) (func(), error) {
	l := flock.New(path + ".lock")
	deadline := time.Now().Add(lockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire bundle lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("bundle %s is locked by another process", path)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
