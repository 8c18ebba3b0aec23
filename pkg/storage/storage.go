package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/net/context"
)

const (
	KindLocal = "local"
	KindS3    = "s3"
)

// IArtifactStore persists named blobs and reports the name they were stored
// under.
type IArtifactStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Kind() string
}

type localStore struct {
	dir string
}

// NewLocal stores artifacts as files in dir, creating it if needed.
func NewLocal(dir string) (IArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	return &localStore{dir: dir}, nil
}

func (s *localStore) Kind() string {
	return KindLocal
}

func (s *localStore) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name = filepath.Base(name)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return name, nil
}
