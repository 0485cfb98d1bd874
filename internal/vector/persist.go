package vector

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calderasoft/patternrag/internal/pattern"
)

const formatVersion = 1

// PersistError reports a failed index load or save together with the
// path involved.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("vector: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

type indexFile struct {
	Version int
	Dim     int
	Vectors [][]float32
}

type metaFile struct {
	Version int             `json:"version"`
	Chunks  []pattern.Chunk `json:"chunks"`
}

// Persist writes the index and its chunk metadata to the configured
// paths. Both files are written to a temp file first and renamed so a
// crash mid-write never truncates a previously good index.
func (idx *Index) Persist(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return &PersistError{Op: "save", Path: cfg.IndexPath, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.MetaPath), 0o755); err != nil {
		return &PersistError{Op: "save", Path: cfg.MetaPath, Err: err}
	}
	if err := writeAtomic(cfg.IndexPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(indexFile{Version: formatVersion, Dim: idx.dim, Vectors: idx.vectors})
	}); err != nil {
		return &PersistError{Op: "save", Path: cfg.IndexPath, Err: err}
	}
	if err := writeAtomic(cfg.MetaPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(metaFile{Version: formatVersion, Chunks: idx.chunks})
	}); err != nil {
		return &PersistError{Op: "save", Path: cfg.MetaPath, Err: err}
	}
	return nil
}

// Load reads a persisted index. It returns os.ErrNotExist (wrapped) when
// no index has been saved yet, and a PersistError for a corrupt or
// version-mismatched file.
func Load(cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	vecF, err := os.Open(cfg.IndexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vector: no persisted index: %w", err)
		}
		return nil, &PersistError{Op: "load", Path: cfg.IndexPath, Err: err}
	}
	defer vecF.Close()
	var vecs indexFile
	if err := gob.NewDecoder(vecF).Decode(&vecs); err != nil {
		return nil, &PersistError{Op: "load", Path: cfg.IndexPath, Err: err}
	}
	if vecs.Version != formatVersion {
		return nil, &PersistError{Op: "load", Path: cfg.IndexPath, Err: fmt.Errorf("format version %d, expected %d", vecs.Version, formatVersion)}
	}

	metaRaw, err := os.ReadFile(cfg.MetaPath)
	if err != nil {
		return nil, &PersistError{Op: "load", Path: cfg.MetaPath, Err: err}
	}
	var meta metaFile
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, &PersistError{Op: "load", Path: cfg.MetaPath, Err: err}
	}
	if meta.Version != formatVersion {
		return nil, &PersistError{Op: "load", Path: cfg.MetaPath, Err: fmt.Errorf("format version %d, expected %d", meta.Version, formatVersion)}
	}
	if len(meta.Chunks) != len(vecs.Vectors) {
		return nil, &PersistError{Op: "load", Path: cfg.MetaPath, Err: fmt.Errorf("%d chunks but %d vectors", len(meta.Chunks), len(vecs.Vectors))}
	}
	for i := range meta.Chunks {
		if len(vecs.Vectors[i]) != vecs.Dim {
			return nil, &PersistError{Op: "load", Path: cfg.IndexPath, Err: fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vecs.Vectors[i]), vecs.Dim)}
		}
	}
	return &Index{dim: vecs.Dim, vectors: vecs.Vectors, chunks: meta.Chunks}, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
