// Package api serves the REST and websocket endpoints for saved trees.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fractree/fractree/internal/auth"
	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/store"
	"github.com/fractree/fractree/internal/typeid"
)

var ErrInvalidTree = errors.New("invalid tree")

// Rooms is the part of the collaboration hub that must hear about writes
// made outside a room.
type Rooms interface {
	Replace(doc document.TreeDocument)
	Evict(treeID string)
}

type Service struct {
	store store.Store
	auth  *auth.Service
	rooms Rooms
}

// NewService creates a Service. rooms may be nil when collaboration is off.
func NewService(s store.Store, authService *auth.Service, rooms Rooms) *Service {
	return &Service{store: s, auth: authService, rooms: rooms}
}

type CreateResult struct {
	Tree       document.TreeDocument `json:"tree"`
	EditToken  string                `json:"editToken"`
	ShareQuery string                `json:"shareQuery"`
}

func validate(doc *document.TreeDocument) error {
	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		doc.Name = "Untitled"
	}
	if err := document.CheckName(doc.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	doc.Normalize()
	return nil
}

// Create saves a new tree and returns it with its edit token.
func (s *Service) Create(ctx context.Context, doc document.TreeDocument) (*CreateResult, error) {
	doc.ID = ""
	if err := validate(&doc); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create tree: %w", err)
	}

	token, err := s.auth.IssueEditToken(created.ID)
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		Tree:       created,
		EditToken:  token,
		ShareQuery: created.Encode(),
	}, nil
}

func (s *Service) Get(ctx context.Context, treeID string) (document.TreeDocument, error) {
	if !typeid.IsTreeID(treeID) {
		return document.TreeDocument{}, store.ErrNotFound
	}
	return s.store.Get(ctx, treeID)
}

// Update replaces the stored tree. A non-zero Version must match the stored
// one. Open rooms are resynced with the result.
func (s *Service) Update(ctx context.Context, treeID string, doc document.TreeDocument) (document.TreeDocument, error) {
	doc.ID = treeID
	if err := validate(&doc); err != nil {
		return document.TreeDocument{}, err
	}

	updated, err := s.store.Update(ctx, doc)
	if err != nil {
		return document.TreeDocument{}, err
	}
	if s.rooms != nil {
		s.rooms.Replace(updated)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, treeID string) error {
	if err := s.store.Delete(ctx, treeID); err != nil {
		return err
	}
	if s.rooms != nil {
		s.rooms.Evict(treeID)
	}
	return nil
}

// RefreshToken issues a new edit token for a tree the caller can already
// edit.
func (s *Service) RefreshToken(ctx context.Context, treeID string) (string, error) {
	if _, err := s.Get(ctx, treeID); err != nil {
		return "", err
	}
	return s.auth.IssueEditToken(treeID)
}
