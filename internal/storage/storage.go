package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/afero"

	"github.com/snapp-incubator/updatelog/internal/config"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage closed")

// Store defines the behavior of the local cache: JSON text values addressed by key.
type Store interface {
	// Get returns the value stored under key; ok is false when there is none.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open initializes the store selected by cfg.Driver.
// An empty driver selects the in-memory store.
func Open(cfg config.Cache) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", "memory":
		return NewFileStore(afero.NewMemMapFs()), nil
	case "file":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errors.New("cache.path is required for file driver")
		}
		osFs := afero.NewOsFs()
		if err := osFs.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, err
		}
		return NewFileStore(afero.NewBasePathFs(osFs, cfg.Path)), nil
	case "sqlite", "sqlite3":
		return OpenSQLite(cfg.Path)
	case "elastic", "elasticsearch":
		return OpenElastic(cfg.Elasticsearch)
	default:
		return nil, errors.New("unknown cache driver: " + driver)
	}
}
