package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gwillem/lerobot-inspect/pkg/hub"
)

var (
	// ErrNotExist is returned by a Source for files the dataset does not have.
	ErrNotExist = errors.New("file does not exist in dataset")
	// ErrUnsupportedVersion is returned for datasets older than codebase v2.0.
	ErrUnsupportedVersion = errors.New("unsupported dataset codebase version")
	// ErrEpisodeNotFound is returned for an episode index outside the dataset.
	ErrEpisodeNotFound = errors.New("episode not found")
)

// Source resolves dataset-relative file names to local paths.
type Source interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// LocalSource reads a dataset that already sits on disk.
type LocalSource struct {
	Root string
}

func (s LocalSource) Fetch(_ context.Context, name string) (string, error) {
	p := filepath.Join(s.Root, filepath.FromSlash(name))
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		return "", err
	}
	return p, nil
}

// HubSource downloads files of a Hub dataset repo on demand.
type HubSource struct {
	Client *hub.Client
	RepoID string
}

func (s HubSource) Fetch(ctx context.Context, name string) (string, error) {
	p, err := s.Client.Download(ctx, s.RepoID, name)
	if errors.Is(err, hub.ErrNotFound) {
		return "", fmt.Errorf("%s: %w: %w", name, ErrNotExist, err)
	}
	return p, err
}
