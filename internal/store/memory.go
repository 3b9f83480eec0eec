package store

import (
	"context"
	"sync"
	"time"

	"github.com/fractree/fractree/internal/document"
)

// Memory is an in-process Store. Contents are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	trees map[string]document.TreeDocument
}

func NewMemory() *Memory {
	return &Memory{trees: make(map[string]document.TreeDocument)}
}

func (m *Memory) Create(_ context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	doc = prepareCreate(doc, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[doc.ID] = doc
	return doc, nil
}

func (m *Memory) Get(_ context.Context, id string) (document.TreeDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.trees[id]
	if !ok {
		return document.TreeDocument{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) Update(_ context.Context, doc document.TreeDocument) (document.TreeDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.trees[doc.ID]
	if !ok {
		return document.TreeDocument{}, ErrNotFound
	}
	next, err := prepareUpdate(stored, doc, time.Now())
	if err != nil {
		return document.TreeDocument{}, err
	}
	m.trees[doc.ID] = next
	return next, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trees[id]; !ok {
		return ErrNotFound
	}
	delete(m.trees, id)
	return nil
}

func (m *Memory) Close() error { return nil }
