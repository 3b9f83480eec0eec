package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fractree/fractree/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS trees (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	document   JSONB NOT NULL,
	version    INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the trees table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Postgres) Create(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	doc = prepareCreate(doc, time.Now())
	data, err := json.Marshal(doc)
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("marshal tree: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO trees (id, name, document, version) VALUES ($1, $2, $3, $4)`,
		doc.ID, doc.Name, data, doc.Version,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return document.TreeDocument{}, fmt.Errorf("%w: id %s already exists", ErrVersionConflict, doc.ID)
		}
		return document.TreeDocument{}, fmt.Errorf("insert tree: %w", err)
	}
	return doc, nil
}

func (s *Postgres) Get(ctx context.Context, id string) (document.TreeDocument, error) {
	return getTree(ctx, s.pool, id, false)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTree(ctx context.Context, q queryRower, id string, forUpdate bool) (document.TreeDocument, error) {
	sql := `SELECT document FROM trees WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var data []byte
	if err := q.QueryRow(ctx, sql, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return document.TreeDocument{}, ErrNotFound
		}
		return document.TreeDocument{}, fmt.Errorf("get tree: %w", err)
	}

	var doc document.TreeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return document.TreeDocument{}, fmt.Errorf("unmarshal tree: %w", err)
	}
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	stored, err := getTree(ctx, tx, doc.ID, true)
	if err != nil {
		return document.TreeDocument{}, err
	}
	next, err := prepareUpdate(stored, doc, time.Now())
	if err != nil {
		return document.TreeDocument{}, err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("marshal tree: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE trees SET name = $2, document = $3, version = $4, updated_at = now() WHERE id = $1`,
		next.ID, next.Name, data, next.Version,
	)
	if err != nil {
		return document.TreeDocument{}, fmt.Errorf("update tree: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return document.TreeDocument{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
