package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/scene"
)

const defaultSaveInterval = 30 * time.Second

// DocLoader returns the persisted scene of a project.
type DocLoader func(ctx context.Context, projectID string) (*scene.Document, error)

// DocSaver persists the scene of a project.
type DocSaver func(ctx context.Context, projectID string, doc *scene.Document) error

// Room is one project's live scene and the clients editing it.
type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client, guarded by Hub.mu
	presence  *PresenceManager
	store     *editor.Store

	// mu serializes commands so that seq order matches apply order.
	mu    sync.Mutex
	seq   int64
	dirty bool
}

func NewRoom(projectID string, store *editor.Store) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		store:     store,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client

	loadDoc      DocLoader
	saveDoc      DocSaver
	storeOpts    editor.Options
	saveInterval time.Duration

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewHub(loader DocLoader, saver DocSaver, opts editor.Options) *Hub {
	return &Hub{
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		loadDoc:      loader,
		saveDoc:      saver,
		storeOpts:    opts,
		saveInterval: defaultSaveInterval,
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Run processes joins and leaves and periodically saves edited rooms until
// Stop is called.
func (h *Hub) Run() {
	defer close(h.stopped)

	ticker := time.NewTicker(h.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirty(context.Background())
		case <-h.done:
			h.saveDirty(context.Background())
			return
		}
	}
}

// Stop ends Run after saving every edited room. It must only be called once
// Run has been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// WithStore runs fn against the project's scene. A live room's store is used
// when one exists; otherwise the scene is loaded for the call and, when
// mutate is set, saved afterwards. Mutations of a live room are pushed to its
// clients as a doc.sync.
func (h *Hub) WithStore(ctx context.Context, projectID string, mutate bool, fn func(*editor.Store) error) error {
	for {
		if room := h.room(projectID); room != nil {
			return h.withRoom(room, mutate, fn)
		}

		// Hold the hub lock so no room opens on a scene that is about to be saved.
		h.mu.Lock()
		if _, ok := h.rooms[projectID]; ok {
			h.mu.Unlock()
			continue
		}
		err := h.withDetached(ctx, projectID, mutate, fn)
		h.mu.Unlock()
		return err
	}
}

func (h *Hub) withRoom(room *Room, mutate bool, fn func(*editor.Store) error) error {
	room.mu.Lock()
	err := fn(room.store)
	if err != nil || !mutate {
		room.mu.Unlock()
		return err
	}
	room.seq++
	room.dirty = true
	msg, err := syncMessage(room)
	room.mu.Unlock()
	if err != nil {
		return err
	}
	h.broadcastToRoom(room.projectID, msg, "")
	return nil
}

func (h *Hub) withDetached(ctx context.Context, projectID string, mutate bool, fn func(*editor.Store) error) error {
	store, err := h.loadStore(ctx, projectID)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	if !mutate {
		return nil
	}
	doc := sharedScene(store)
	return h.saveDoc(ctx, projectID, &doc)
}

func (h *Hub) room(projectID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[projectID]
}

func (h *Hub) loadStore(ctx context.Context, projectID string) (*editor.Store, error) {
	doc, err := h.loadDoc(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	store := editor.NewStore(h.storeOpts)
	if err := store.LoadDocument(*doc); err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	return store, nil
}

func (h *Hub) openRoom(ctx context.Context, projectID string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[projectID]; ok {
		return room, nil
	}
	store, err := h.loadStore(ctx, projectID)
	if err != nil {
		return nil, err
	}
	room := NewRoom(projectID, store)
	h.watch(room)
	h.rooms[projectID] = room
	return room, nil
}

// watch forwards store notifications to the room's clients.
func (h *Hub) watch(room *Room) {
	room.store.Events().Subscribe(editor.EventLargeScene, editor.ListenerFunc(func(e editor.Event) {
		count, _ := e.Data.(int)
		msg, err := newMessage(TypeNotice, NoticePayload{
			Kind:        string(editor.EventLargeScene),
			Message:     "Large scene detected, performance mode enabled",
			VertexCount: count,
		})
		if err != nil {
			return
		}
		slog.Info("performance mode enabled", "project", room.projectID, "vertices", count)
		// Raised while the room is locked; deliver outside of it.
		go h.broadcastToRoom(room.projectID, msg, "")
	}))
}

func (h *Hub) addClient(client *Client) {
	room, err := h.openRoom(context.Background(), client.ProjectID)
	if err != nil {
		slog.Error("open room", "error", err, "project", client.ProjectID)
		if msg, merr := newMessage(TypeError, ErrorPayload{Message: "failed to load project"}); merr == nil {
			client.Send(msg)
		}
		client.close()
		return
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	room.mu.Lock()
	welcome, werr := newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		UserID:    client.UserID,
		ServerSeq: room.seq,
	})
	syncMsg, serr := syncMessage(room)
	room.mu.Unlock()
	if err := errors.Join(werr, serr); err != nil {
		slog.Error("build join messages", "error", err)
		return
	}
	client.Send(welcome)
	client.Send(syncMsg)

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinMsg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	if err == nil {
		joinMsg.UserID = client.UserID
		h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)
	}

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		client.close()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		h.saveRoom(context.Background(), room)
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
	if empty {
		return
	}

	leaveMsg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	if err != nil {
		return
	}
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.ProjectID, leaveMsg, "")
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeCmdSubmit:
		h.handleCommand(ctx, sender, msg)
	case TypeDocRequest:
		h.handleDocRequest(sender)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}
	room.presence.Update(sender.UserID, &presence)

	outMsg, err := newMessage(TypePresenceUpdate, presence)
	if err != nil {
		return
	}
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.ProjectID, outMsg, sender.ClientID)
}

func (h *Hub) handleDocRequest(sender *Client) {
	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}
	room.mu.Lock()
	msg, err := syncMessage(room)
	room.mu.Unlock()
	if err != nil {
		slog.Error("build doc sync", "error", err, "project", sender.ProjectID)
		return
	}
	sender.Send(msg)
}

// handleCommand applies a submitted command to the room's store, acks the
// sender and tells everyone else. Undo and redo rewrite the shared scene, so
// they are followed by a full doc.sync instead of a command broadcast.
func (h *Hub) handleCommand(ctx context.Context, sender *Client, msg *Message) {
	var submit CommandSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid command payload", "error", err, "user", sender.UserID)
		h.nack(sender, "", "invalid payload")
		return
	}

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}

	cmd, err := editor.DecodeCommand(submit.Command)
	if err != nil {
		slog.Warn("rejected command", "error", err, "user", sender.UserID)
		h.nack(sender, submit.ID, err.Error())
		return
	}

	room.mu.Lock()
	res, err := room.store.Apply(ctx, cmd)
	if err != nil {
		room.mu.Unlock()
		slog.Warn("command failed", "kind", cmd.Kind(), "error", err, "project", room.projectID)
		h.nack(sender, submit.ID, err.Error())
		return
	}
	if res.Applied {
		room.seq++
		room.dirty = true
	}
	seq := room.seq

	var out *Message
	switch cmd.(type) {
	case editor.UndoCommand, editor.RedoCommand:
		if res.Applied {
			out, err = syncMessage(room)
		}
	default:
		if res.Applied {
			out, err = newMessage(TypeCmdBroadcast, CommandBroadcastPayload{
				Command:   submit.Command,
				UserID:    sender.UserID,
				ServerSeq: seq,
				IDs:       res.IDs,
			})
		}
	}
	room.mu.Unlock()
	if err != nil {
		slog.Error("build broadcast", "error", err)
	}

	ack, aerr := newMessage(TypeCmdAck, CommandAckPayload{
		CommandID: submit.ID,
		ServerSeq: seq,
		IDs:       res.IDs,
		Applied:   res.Applied,
	})
	if aerr == nil {
		sender.Send(ack)
	}

	if out == nil {
		return
	}
	out.Seq = seq
	if out.Type == TypeDocSync {
		h.broadcastToRoom(sender.ProjectID, out, "")
		return
	}
	h.broadcastToRoom(sender.ProjectID, out, sender.ClientID)
}

func (h *Hub) nack(client *Client, commandID, reason string) {
	msg, err := newMessage(TypeCmdNack, CommandNackPayload{CommandID: commandID, Reason: reason})
	if err != nil {
		return
	}
	client.Send(msg)
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) saveDirty(ctx context.Context) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(ctx, r)
	}
}

func (h *Hub) saveRoom(ctx context.Context, room *Room) {
	room.mu.Lock()
	if !room.dirty {
		room.mu.Unlock()
		return
	}
	doc := sharedScene(room.store)
	room.dirty = false
	room.mu.Unlock()

	if err := h.saveDoc(ctx, room.projectID, &doc); err != nil {
		slog.Error("save scene", "error", err, "project", room.projectID)
		room.mu.Lock()
		room.dirty = true
		room.mu.Unlock()
		return
	}
	slog.Debug("scene saved", "project", room.projectID)
}

// syncMessage snapshots the room's scene. Callers hold room.mu.
func syncMessage(room *Room) (*Message, error) {
	doc := sharedScene(room.store)
	msg, err := newMessage(TypeDocSync, DocSyncPayload{
		Document:  doc,
		ServerSeq: room.seq,
	})
	if err != nil {
		return nil, err
	}
	msg.ProjectID = room.projectID
	msg.Seq = room.seq
	return msg, nil
}

// sharedScene exports the store without the room's selection state.
func sharedScene(store *editor.Store) scene.Document {
	doc := store.ExportScene()
	doc.ClearSelection()
	return doc
}
