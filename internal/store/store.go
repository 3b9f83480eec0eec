// Package store persists saved trees so they can be shared and edited together.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fractree/fractree/internal/config"
	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/typeid"
)

var (
	ErrNotFound        = errors.New("tree not found")
	ErrVersionConflict = errors.New("tree version conflict")
)

// Store saves tree documents by ID.
//
// Update applies optimistic concurrency: when doc.Version is non-zero it must
// match the stored version. Create and Update both bump Version and stamp
// UpdatedAt.
type Store interface {
	Create(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error)
	Get(ctx context.Context, id string) (document.TreeDocument, error)
	Update(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open creates the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return NewMemory(), nil
	case "redis":
		s := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// prepareCreate assigns an ID and first version to a new document.
func prepareCreate(doc document.TreeDocument, now time.Time) document.TreeDocument {
	if doc.ID == "" {
		doc.ID = typeid.NewTreeID()
	}
	doc.Version = 0
	doc.CreatedAt = ""
	doc.Touch(now)
	return doc
}

// prepareUpdate checks the caller's version against the stored document and
// returns the next revision.
func prepareUpdate(stored, doc document.TreeDocument, now time.Time) (document.TreeDocument, error) {
	if doc.Version != 0 && doc.Version != stored.Version {
		return document.TreeDocument{}, fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, stored.Version, doc.Version)
	}
	doc.Version = stored.Version
	doc.CreatedAt = stored.CreatedAt
	doc.Touch(now)
	return doc, nil
}
