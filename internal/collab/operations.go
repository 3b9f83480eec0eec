package collab

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrInvalidOperation = errors.New("invalid operation")
)

// DocumentState holds the authoritative tree for a room. Operations are
// applied one at a time through the room's engine so point moves follow the
// same drag rules as the editor.
type DocumentState struct {
	mu        sync.RWMutex
	doc       document.TreeDocument
	engine    *engine.Engine
	serverSeq int64
	savedSeq  int64
}

// NewDocumentState creates a state from a loaded document.
func NewDocumentState(doc document.TreeDocument, opts ...engine.Option) *DocumentState {
	doc.Normalize()
	return &DocumentState{
		doc:    doc,
		engine: doc.Engine(opts...),
	}
}

// Document returns a copy of the current document and its server sequence.
func (ds *DocumentState) Document() (document.TreeDocument, int64) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.doc, ds.serverSeq
}

// ApplyOperation applies op and returns the new server sequence.
func (ds *DocumentState) ApplyOperation(op Operation) (int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := ds.applyOperationLocked(op); err != nil {
		return 0, err
	}

	ds.serverSeq++
	return ds.serverSeq, nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (ds *DocumentState) applyOperationLocked(op Operation) error {
	switch op.Type {
	case OpPointMove:
		return ds.applyPointMove(op)
	case OpStyleUpdate:
		return ds.applyStyleUpdate(op)
	case OpTreeRename:
		return ds.applyRename(op)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func (ds *DocumentState) applyPointMove(op Operation) error {
	role, err := engine.ParseRole(op.Role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if op.X == nil || op.Y == nil {
		return fmt.Errorf("%w: x and y are required", ErrInvalidOperation)
	}
	if !ds.engine.MovePoint(role, *op.X, *op.Y) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidOperation)
	}

	moved := document.FromScene(ds.doc.Name, ds.engine.Points(), ds.engine.Style())
	ds.doc.Points = moved.Points
	return nil
}

func (ds *DocumentState) applyStyleUpdate(op Operation) error {
	style := ds.engine.Style()
	changed := false

	if op.Mode != "" {
		mode, err := engine.ParseMode(op.Mode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		style.Mode = mode
		changed = true
	}
	if op.Width != nil {
		w := *op.Width
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: width must be positive", ErrInvalidOperation)
		}
		style.BranchWidth = w
		changed = true
	}
	if op.ShowPoints != nil {
		style.ShowPoints = *op.ShowPoints
		changed = true
	}
	if !changed {
		return fmt.Errorf("%w: empty style update", ErrInvalidOperation)
	}

	ds.engine.SetStyle(style)
	ds.doc.Mode = style.Mode
	ds.doc.BranchWidth = style.BranchWidth
	ds.doc.ShowPoints = style.ShowPoints
	return nil
}

func (ds *DocumentState) applyRename(op Operation) error {
	name := strings.TrimSpace(op.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOperation)
	}
	if err := document.CheckName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	ds.doc.Name = name
	return nil
}

// Replace swaps in a document written outside the room and returns the new
// server sequence. The replacement is already persisted.
func (ds *DocumentState) Replace(doc document.TreeDocument) int64 {
	doc.Normalize()

	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.doc = doc
	ds.engine.SetPoints(doc.EnginePoints())
	ds.engine.SetStyle(doc.Style())
	ds.serverSeq++
	ds.savedSeq = ds.serverSeq
	return ds.serverSeq
}

// Dirty reports whether there are operations not yet saved.
func (ds *DocumentState) Dirty() bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq != ds.savedSeq
}

// MarkSaved records that the document as of seq has been stored as saved.
// Operations applied after seq keep the state dirty.
func (ds *DocumentState) MarkSaved(seq int64, saved document.TreeDocument) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if seq > ds.savedSeq {
		ds.savedSeq = seq
	}
	ds.doc.Version = saved.Version
	ds.doc.CreatedAt = saved.CreatedAt
	ds.doc.UpdatedAt = saved.UpdatedAt
}
