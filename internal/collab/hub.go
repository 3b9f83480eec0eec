package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
	"github.com/fractree/fractree/internal/metrics"
	"github.com/fractree/fractree/internal/store"
	"github.com/fractree/fractree/internal/typeid"
)

const storeTimeout = 5 * time.Second

// Store is the persistence the hub loads rooms from and saves them to.
type Store interface {
	Get(ctx context.Context, id string) (document.TreeDocument, error)
	Update(ctx context.Context, doc document.TreeDocument) (document.TreeDocument, error)
}

type Room struct {
	treeID   string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	state    *DocumentState

	// opMu orders operation fan-out so every client sees server
	// sequence numbers in increasing order.
	opMu sync.Mutex
}

func NewRoom(doc document.TreeDocument) *Room {
	return &Room{
		treeID:   doc.ID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		state:    NewDocumentState(doc),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // treeID -> room
	register   chan *Client
	unregister chan *Client

	store        Store
	saveInterval time.Duration
	metrics      *metrics.Metrics

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type Option func(*Hub)

// WithSaveInterval sets how often dirty rooms are written back.
func WithSaveInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.saveInterval = d
		}
	}
}

// WithMetrics reports room, client, operation and save counts to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func NewHub(s Store, opts ...Option) *Hub {
	h := &Hub{
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		store:        s,
		saveInterval: 30 * time.Second,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes joins, leaves and periodic saves until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.saveInterval)
	defer func() {
		ticker.Stop()
		close(h.done)
	}()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirty()
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Stop saves every dirty room, disconnects all clients and waits for Run to
// return.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register adds client to its room. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// RoomCount returns the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) room(treeID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[treeID]
}

func (h *Hub) openRoom(treeID string) (*Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	doc, err := h.store.Get(ctx, treeID)
	if err != nil {
		return nil, err
	}
	room := NewRoom(doc)

	h.mu.Lock()
	h.rooms[treeID] = room
	h.mu.Unlock()

	h.metrics.RoomOpened()
	slog.Info("room opened", "tree", treeID)
	return room, nil
}

func (h *Hub) addClient(client *Client) {
	room := h.room(client.TreeID)
	if room == nil {
		var err error
		room, err = h.openRoom(client.TreeID)
		if err != nil {
			slog.Warn("open room failed", "tree", client.TreeID, "error", err)
			reason := "could not load tree"
			if errors.Is(err, store.ErrNotFound) {
				reason = "tree not found"
			}
			client.Send(newMessage(TypeError, ErrorPayload{Message: reason}))
			client.close()
			return
		}
	}

	room.opMu.Lock()
	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
		CanEdit:  client.CanEdit,
	}))
	h.sendSync(client, room)
	room.opMu.Unlock()

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.TreeID, joinMsg, client.ClientID)

	h.metrics.ClientJoined()
	slog.Info("client joined", "user", client.UserID, "tree", client.TreeID, "canEdit", client.CanEdit)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.TreeID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.TreeID)
	}
	h.mu.Unlock()

	h.metrics.ClientLeft()
	slog.Info("client left", "user", client.UserID, "tree", client.TreeID)

	if empty {
		h.saveRoom(room)
		h.metrics.RoomClosed()
		slog.Info("room closed", "tree", client.TreeID)
		return
	}

	// Broadcast leave to remaining clients
	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.TreeID, leaveMsg, "")
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	case TypeDocSync:
		if room := h.room(sender.TreeID); room != nil {
			room.opMu.Lock()
			h.sendSync(sender, room)
			room.opMu.Unlock()
		}
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) sendSync(client *Client, room *Room) {
	doc, seq := room.state.Document()
	msg := newMessage(TypeDocSync, DocSyncPayload{Document: doc, ServerSeq: seq})
	msg.Seq = seq
	client.Send(msg)
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	if !sender.allowPresence(presence, time.Now()) {
		return
	}
	presence.DisplayName = sender.DisplayName

	room := h.room(sender.TreeID)
	if room == nil {
		return
	}

	presence = room.presence.Update(sender.UserID, presence)

	// Broadcast to other clients in room
	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.TreeID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid operation payload"}))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	if !sender.CanEdit {
		h.metrics.OpApplied(op.Type, false)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: "read only"}))
		return
	}

	room := h.room(sender.TreeID)
	if room == nil {
		return
	}

	if op.Type == OpPointMove {
		if role, err := engine.ParseRole(op.Role); err == nil {
			if holder, ok := room.presence.DraggedBy(role); ok && holder != sender.UserID {
				h.metrics.OpApplied(op.Type, false)
				sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: "point is being dragged by " + holder}))
				return
			}
		}
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq, err := room.state.ApplyOperation(op)
	if err != nil {
		h.metrics.OpApplied(op.Type, false)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}))
		return
	}
	h.metrics.OpApplied(op.Type, true)

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: time.Now().UnixMilli(),
	})
	ack.Seq = seq
	sender.Send(ack)

	out := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	out.UserID = sender.UserID
	out.Seq = seq
	h.broadcastToRoom(sender.TreeID, out, sender.ClientID)
}

// Replace pushes a document written through the REST API into its open
// room, if any, and resyncs every client.
func (h *Hub) Replace(doc document.TreeDocument) {
	room := h.room(doc.ID)
	if room == nil {
		return
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq := room.state.Replace(doc)
	current, _ := room.state.Document()
	msg := newMessage(TypeDocSync, DocSyncPayload{Document: current, ServerSeq: seq})
	msg.Seq = seq
	h.broadcastToRoom(doc.ID, msg, "")
}

// Evict closes the room for a deleted tree without saving it.
func (h *Hub) Evict(treeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[treeID]
	if !ok {
		return
	}
	delete(h.rooms, treeID)

	msg := newMessage(TypeError, ErrorPayload{Message: "tree deleted"})
	for _, c := range room.clients {
		c.Send(msg)
		c.close()
		h.metrics.ClientLeft()
	}
	h.metrics.RoomClosed()
	slog.Info("room evicted", "tree", treeID)
}

func (h *Hub) broadcastToRoom(treeID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[treeID]
	if !ok {
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func (h *Hub) saveRoom(room *Room) {
	if !room.state.Dirty() {
		return
	}
	doc, seq := room.state.Document()

	// The room holds the latest edits, so it overwrites whatever is stored.
	doc.Version = 0

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	saved, err := h.store.Update(ctx, doc)
	h.metrics.Saved(err)
	if err != nil {
		slog.Error("save tree failed", "tree", room.treeID, "error", err)
		return
	}
	room.state.MarkSaved(seq, saved)
	slog.Debug("tree saved", "tree", room.treeID, "version", saved.Version, "seq", seq)
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(r)
	}
}

func (h *Hub) shutdown() {
	slog.Info("saving all trees", "rooms", h.RoomCount())
	h.saveDirty()

	h.mu.Lock()
	var conns []*websocket.Conn
	for id, room := range h.rooms {
		for _, c := range room.clients {
			if c.conn != nil {
				conns = append(conns, c.conn)
			}
		}
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}()
	}
	wg.Wait()
}
