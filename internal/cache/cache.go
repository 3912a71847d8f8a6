// Package cache is the content-addressed artifact store behind the run
// layer. Raw parser output, canonical pages, and rendered Markdown are
// persisted under a key derived from every input that could change the
// output, so re-scoring never re-invokes a parser. Artifacts are
// immutable once written: a write under an existing key is a collision
// error, never a silent overwrite.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCollision marks a write to an already-populated immutable key.
var ErrCollision = eris.New("cache: key already exists")

// ErrMiss marks a read of an absent artifact.
var ErrMiss = eris.New("cache: artifact not found")

// Artifact names the per-key artifact kinds.
type Artifact string

const (
	ArtifactRaw       Artifact = "raw.bin"
	ArtifactCanonical Artifact = "canonical.json"
	ArtifactMarkdown  Artifact = "page.md"
)

// Key identifies one cached parser invocation. AdapterConfig is an
// opaque fingerprint of the adapter settings: two runs with different
// settings must never share a cache slot.
type Key struct {
	Parser        string
	DocumentID    string
	Page          int
	Trial         int
	AdapterConfig string
}

// Hash returns the content address for the key.
func (k Key) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%s\x1f%d\x1f%d\x1f%s", k.Parser, k.DocumentID, k.Page, k.Trial, k.AdapterConfig)
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a filesystem-backed artifact store. Safe for concurrent use:
// writers go through write-to-temp plus atomic link, so readers never
// observe a partial artifact and concurrent writers serialize on the
// final name.
type Store struct {
	root string
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create root %s", dir)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(key Key, artifact Artifact) string {
	hash := key.Hash()
	return filepath.Join(s.root, hash[:2], hash, string(artifact))
}

// Has reports whether the artifact exists for the key.
func (s *Store) Has(key Key, artifact Artifact) bool {
	_, err := os.Stat(s.path(key, artifact))
	return err == nil
}

// Get reads an artifact, returning ErrMiss when absent.
func (s *Store) Get(key Key, artifact Artifact) ([]byte, error) {
	data, err := os.ReadFile(s.path(key, artifact))
	if os.IsNotExist(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read %s", artifact)
	}
	return data, nil
}

// Put writes an artifact under an unused slot. An existing artifact is a
// logic error and fails with ErrCollision; callers wanting force
// semantics must Remove the key first.
func (s *Store) Put(key Key, artifact Artifact, data []byte) error {
	err := s.write(key, artifact, data)
	if eris.Is(err, ErrCollision) {
		return eris.Wrapf(ErrCollision, "cache: %s/%s for key %s", artifact, key.Parser, key.Hash()[:12])
	}
	return err
}

// write lands data at the final path via temp file plus hard link. Link
// fails atomically when the target exists, which both detects collisions
// and serializes concurrent writers. No partial write is ever visible at
// the final path.
func (s *Store) write(key Key, artifact Artifact, data []byte) error {
	final := s.path(key, artifact)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "cache: write temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp")
	}

	if err := os.Link(tmpName, final); err != nil {
		if os.IsExist(err) {
			return ErrCollision
		}
		return eris.Wrapf(err, "cache: link %s", final)
	}
	return nil
}

// GetOrCompute returns the raw artifact for the key, invoking compute
// only on a miss. The hit path never calls compute; on a concurrent-write
// collision the already-persisted artifact wins and is returned.
func (s *Store) GetOrCompute(ctx context.Context, key Key, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if data, err := s.Get(key, ArtifactRaw); err == nil {
		return data, true, nil
	} else if !eris.Is(err, ErrMiss) {
		return nil, false, err
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.write(key, ArtifactRaw, data); err != nil {
		if eris.Is(err, ErrCollision) {
			// Another writer landed first; its artifact is authoritative.
			zap.L().Debug("cache: lost write race, reading winner",
				zap.String("parser", key.Parser),
				zap.String("document", key.DocumentID),
				zap.Int("page", key.Page),
			)
			existing, readErr := s.Get(key, ArtifactRaw)
			if readErr != nil {
				return nil, false, readErr
			}
			return existing, true, nil
		}
		return nil, false, err
	}
	return data, false, nil
}

// GetByHash reads an artifact addressed by a previously recorded key
// hash, for callers replaying run records that only stored the hash.
func (s *Store) GetByHash(hash string, artifact Artifact) ([]byte, error) {
	if len(hash) < 2 {
		return nil, ErrMiss
	}
	data, err := os.ReadFile(filepath.Join(s.root, hash[:2], hash, string(artifact)))
	if os.IsNotExist(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: read %s", artifact)
	}
	return data, nil
}

// Remove deletes every artifact under the key (explicit force semantics).
func (s *Store) Remove(key Key) error {
	hash := key.Hash()
	dir := filepath.Join(s.root, hash[:2], hash)
	if err := os.RemoveAll(dir); err != nil {
		return eris.Wrapf(err, "cache: remove %s", hash[:12])
	}
	return nil
}
