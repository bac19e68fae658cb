package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
)

// PersistenceError reports a failed save or load of an index file.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s similarity index %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

var (
	errVersionMismatch  = errors.New("unsupported format version")
	errChecksumMismatch = errors.New("checksum mismatch")
)

// indexFile is the on-disk layout. Neighbors are kept raw so the checksum is
// computed over exactly the bytes that were written.
type indexFile struct {
	FormatVersion int             `json:"format_version"`
	Metadata      Metadata        `json:"metadata"`
	Checksum      string          `json:"checksum"`
	Neighbors     json.RawMessage `json:"neighbors"`
	ItemIndex     map[string]int  `json:"item_index"`
	UserIndex     map[string]int  `json:"user_index"`
}

// Save writes idx to path through a temporary file in the same directory
// followed by a rename, so readers see either the old file or the new one.
func Save(path string, idx *Index) error {
	if idx == nil {
		return &PersistenceError{Op: "save", Path: path, Err: errors.New("nil index")}
	}

	neighbors, err := json.Marshal(idx.Neighbors)
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("encode neighbors: %w", err)}
	}
	data, err := json.Marshal(indexFile{
		FormatVersion: FormatVersion,
		Metadata:      idx.Meta,
		Checksum:      checksum(neighbors),
		Neighbors:     neighbors,
		ItemIndex:     idx.ItemIndex,
		UserIndex:     idx.UserIndex,
	})
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("encode index: %w", err)}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("create directory: %w", err)}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("sync temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// Load reads an index written by Save. A missing file yields an error that
// matches os.ErrNotExist.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("decode index: %w", err)}
	}
	if f.FormatVersion != FormatVersion {
		return nil, &PersistenceError{Op: "load", Path: path,
			Err: fmt.Errorf("%w: %d", errVersionMismatch, f.FormatVersion)}
	}
	if checksum(f.Neighbors) != f.Checksum {
		return nil, &PersistenceError{Op: "load", Path: path, Err: errChecksumMismatch}
	}

	neighbors := make(map[string][]Neighbor)
	if err := json.Unmarshal(f.Neighbors, &neighbors); err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("decode neighbors: %w", err)}
	}
	for id, ns := range neighbors {
		if ns == nil {
			neighbors[id] = []Neighbor{}
		}
	}
	if f.ItemIndex == nil {
		f.ItemIndex = make(map[string]int)
	}
	if f.UserIndex == nil {
		f.UserIndex = make(map[string]int)
	}

	return &Index{
		Meta:      f.Metadata,
		Neighbors: neighbors,
		ItemIndex: f.ItemIndex,
		UserIndex: f.UserIndex,
	}, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// MarshalJSON encodes a neighbor as an [item_id, score] pair with the score
// written at float32 precision.
func (n Neighbor) MarshalJSON() ([]byte, error) {
	id, err := json.Marshal(n.ItemID)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(id)+20)
	b = append(b, '[')
	b = append(b, id...)
	b = append(b, ',')
	b = strconv.AppendFloat(b, float64(n.Score), 'g', -1, 32)
	b = append(b, ']')
	return b, nil
}

func (n *Neighbor) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("neighbor: want [item_id, score], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &n.ItemID); err != nil {
		return fmt.Errorf("neighbor item id: %w", err)
	}
	score, err := strconv.ParseFloat(string(pair[1]), 32)
	if err != nil {
		return fmt.Errorf("neighbor score: %w", err)
	}
	n.Score = float32(score)
	return nil
}
