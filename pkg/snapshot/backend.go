package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/focus-dev/focus/internal/errors"
)

// Backend stores encoded snapshots by name.
type Backend interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// NewName returns a unique snapshot name. Names sort in creation order,
// also within one second: the UUIDv7 suffix is monotonic in the process.
func NewName() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.Must(uuid.NewV7()).String() + ".json"
}

// Save encodes the snapshot and stores it under a new name.
func Save(ctx context.Context, b Backend, snap *Snapshot) (string, error) {
	data, err := snap.Encode()
	if err != nil {
		return "", err
	}
	name := NewName()
	if err := b.Save(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Load reads and decodes a named snapshot. The name "latest" resolves to
// the most recent snapshot in the backend.
func Load(ctx context.Context, b Backend, name string) (*Snapshot, error) {
	if name == "latest" {
		names, err := b.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, errors.New("F010").WithDetail("no snapshots saved yet")
		}
		name = names[len(names)-1]
	}

	data, err := b.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// FileBackend keeps snapshots in a local directory.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir}
}

// Save implements Backend.
func (f *FileBackend) Save(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return errors.New("F010").Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(f.Dir, filepath.Base(name)), data, 0644); err != nil {
		return errors.New("F010").Wrap(err)
	}
	return nil
}

// Load implements Backend.
func (f *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir, filepath.Base(name)))
	if err != nil {
		return nil, errors.New("F010").WithDetailf("snapshot %q", name).Wrap(err)
	}
	return data, nil
}

// List implements Backend. Names are returned in ascending order.
func (f *FileBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New("F010").Wrap(err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isSnapshotFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile decodes a snapshot or fixture file from disk.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("F010").WithDetailf("snapshot file %q", path).Wrap(err)
	}
	return Decode(data)
}

func isSnapshotFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
