package collab

import (
	"math"
	"sync"

	"github.com/fractree/fractree/internal/engine"
)

// PresenceManager tracks the cursor and drag state of everyone in a room,
// keyed by user ID.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]PresencePayload),
	}
}

// Update records p for userID after dropping a non-finite cursor and an
// unknown drag role. It returns the stored value.
func (pm *PresenceManager) Update(userID string, p PresencePayload) PresencePayload {
	if p.Cursor != nil && (math.IsNaN(p.Cursor.X) || math.IsInf(p.Cursor.X, 0) ||
		math.IsNaN(p.Cursor.Y) || math.IsInf(p.Cursor.Y, 0)) {
		p.Cursor = nil
	}
	if p.Dragging != "" {
		if _, err := engine.ParseRole(p.Dragging); err != nil {
			p.Dragging = ""
		}
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[userID] = p
	return p
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, userID)
}

// DraggedBy returns the user currently dragging role, if any.
func (pm *PresenceManager) DraggedBy(role engine.Role) (string, bool) {
	name := role.String()
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	for userID, p := range pm.presences {
		if p.Dragging == name {
			return userID, true
		}
	}
	return "", false
}

func (pm *PresenceManager) StateMessage() *Message {
	pm.mu.RLock()
	all := make(map[string]*PresencePayload, len(pm.presences))
	for userID, p := range pm.presences {
		all[userID] = &p
	}
	pm.mu.RUnlock()
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}
