// Package store persists the cron schedule.
//
// Every backend reads and replaces the whole schedule at once; there is no
// locking between processes, so concurrent writers are last-writer-wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"localcron/internal/config"
	"localcron/internal/domain"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Store reads and replaces the persisted schedule.
type Store interface {
	ReadAll(ctx context.Context) (domain.Schedule, error)
	WriteAll(ctx context.Context, s domain.Schedule) error
	Close() error
}

// Open initializes the configured backend.
func Open(ctx context.Context, cfg config.Store, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log.Debug().Str("driver", driver).Str("path", cfg.Path).Msg("opening schedule store")

	switch driver {
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, cfg.Path)
	case "redis":
		return OpenRedis(ctx, cfg.Redis)
	case "file":
		return NewFile(afero.NewOsFs(), cfg.Path), nil
	case "memory":
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// documentVersion is the format version written by the document backends.
const documentVersion = 2

// document is the JSON layout shared by the redis and file backends.
type document struct {
	Version int             `json:"version"`
	Events  domain.Schedule `json:"events"`
}

func encodeDocument(s domain.Schedule) ([]byte, error) {
	if s == nil {
		s = domain.Schedule{}
	}
	return json.Marshal(document{Version: documentVersion, Events: s})
}

func decodeDocument(b []byte) (domain.Schedule, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	if doc.Version != 0 && doc.Version != documentVersion {
		return nil, fmt.Errorf("decoding schedule: unsupported version %d", doc.Version)
	}
	if doc.Events == nil {
		doc.Events = domain.Schedule{}
	}
	return doc.Events, nil
}
