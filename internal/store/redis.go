package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/fractree/fractree/internal/document"
)

// Redis implements Store with one JSON value per tree.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*Redis)

// WithTTL sets the expiration for saved trees. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *Redis) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for saved trees.
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		s.prefix = prefix
	}
}

// NewRedis creates a Redis store connected to address.
func NewRedis(address, password string, db int, opts ...RedisOption) *Redis {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, opts...)
}

// NewRedisFromClient creates a Redis store from an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *Redis {
	s := &Redis{
		client: client,
		prefix: "fractree:tree:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) key(id string) string {
	return s.prefix + id
}

// Ping checks the connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Create(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	doc = prepareCreate(doc, time.Now())
	data, err := json.Marshal(doc)
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("marshal tree: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(doc.ID), data, s.ttl).Result()
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("save tree: %w", err)
	}
	if !ok {
		return document.TreeDocument{}, fmt.Errorf("%w: id %s already exists", ErrVersionConflict, doc.ID)
	}
	return doc, nil
}

func (s *Redis) Get(ctx context.Context, id string) (document.TreeDocument, error) {
	return s.get(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Redis) get(ctx context.Context, c getter, id string) (document.TreeDocument, error) {
	data, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return document.TreeDocument{}, ErrNotFound
	}
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("load tree: %w", err)
	}

	var doc document.TreeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return document.TreeDocument{}, fmt.Errorf("unmarshal tree: %w", err)
	}
	return doc, nil
}

func (s *Redis) Update(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	key := s.key(doc.ID)
	var next document.TreeDocument

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		stored, err := s.get(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		next, err = prepareUpdate(stored, doc, time.Now())
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal tree: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, backend.TxFailedErr) {
		return document.TreeDocument{}, fmt.Errorf("%w: concurrent write", ErrVersionConflict)
	}
	if err != nil {
		return document.TreeDocument{}, err
	}
	return next, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
