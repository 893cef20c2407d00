package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/scene"
)

type memScenes struct {
	mu    sync.Mutex
	docs  map[string]scene.Document
	saves int
}

func (m *memScenes) load(_ context.Context, projectID string) (*scene.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[projectID]
	if !ok {
		return nil, errors.New("no such project")
	}
	return &doc, nil
}

func (m *memScenes) save(_ context.Context, projectID string, doc *scene.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[projectID] = *doc
	m.saves++
	return nil
}

func (m *memScenes) get(projectID string) (scene.Document, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[projectID], m.saves
}

func newTestHub(t *testing.T, opts editor.Options) (*Hub, *memScenes) {
	t.Helper()
	scenes := &memScenes{docs: map[string]scene.Document{"proj_1": *scene.NewEmptyDocument()}}
	return NewHub(scenes.load, scenes.save, opts), scenes
}

func join(h *Hub, userID, clientID string) *Client {
	c := NewClient(h, nil, userID, userID, "proj_1", clientID)
	h.addClient(c)
	return c
}

// next returns the first queued message of the given type, skipping others.
func next(t *testing.T, c *Client, msgType string) *Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data, ok := <-c.send:
			require.True(t, ok, "client closed while waiting for %s", msgType)
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == msgType {
				return &msg
			}
		case <-deadline:
			t.Fatalf("no %s message", msgType)
			return nil
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func submit(t *testing.T, h *Hub, c *Client, id string, cmd editor.Command) {
	t.Helper()
	raw, err := editor.EncodeCommand(cmd)
	require.NoError(t, err)
	payload, err := json.Marshal(CommandSubmitPayload{ID: id, Command: raw})
	require.NoError(t, err)
	h.handleMessage(context.Background(), c, &Message{Type: TypeCmdSubmit, Payload: payload})
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func TestJoinSendsWelcomeAndScene(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{})

	a := join(h, "user_a", "c1")
	welcome := decode[WelcomePayload](t, next(t, a, TypeWelcome))
	assert.Equal(t, "c1", welcome.ClientID)
	synced := decode[DocSyncPayload](t, next(t, a, TypeDocSync))
	require.Len(t, synced.Document.Layers, 1)
	next(t, a, TypePresenceState)

	join(h, "user_b", "c2")
	joined := decode[PresenceJoinPayload](t, next(t, a, TypePresenceJoin))
	assert.Equal(t, "user_b", joined.UserID)
}

func TestJoinUnknownProjectClosesClient(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{})
	c := NewClient(h, nil, "user_a", "A", "proj_missing", "c1")
	h.addClient(c)

	next(t, c, TypeError)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Nil(t, h.room("proj_missing"))
}

func TestCommandAckAndBroadcast(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{})
	a := join(h, "user_a", "c1")
	b := join(h, "user_b", "c2")
	drain(a)
	drain(b)

	submit(t, h, a, "cmd-1", editor.AddShapeCommand{Shape: editor.ShapeSpec{Type: scene.ShapeSphere, ElementCount: 12}})

	ack := decode[CommandAckPayload](t, next(t, a, TypeCmdAck))
	assert.Equal(t, "cmd-1", ack.CommandID)
	assert.True(t, ack.Applied)
	assert.Equal(t, int64(1), ack.ServerSeq)
	require.Len(t, ack.IDs, 1)

	bc := decode[CommandBroadcastPayload](t, next(t, b, TypeCmdBroadcast))
	assert.Equal(t, ack.IDs, bc.IDs)
	assert.Equal(t, "user_a", bc.UserID)
	cmd, err := editor.DecodeCommand(bc.Command)
	require.NoError(t, err)
	assert.Equal(t, "addShape", cmd.Kind())

	assert.Equal(t, 12, h.room("proj_1").store.VertexCount())
}

func TestDocSyncOmitsSelection(t *testing.T) {
	h, scenes := newTestHub(t, editor.Options{})
	a := join(h, "user_a", "c1")
	b := join(h, "user_b", "c2")

	submit(t, h, a, "cmd-1", editor.AddShapeCommand{Shape: editor.ShapeSpec{Type: scene.ShapeCube, ElementCount: 8}})
	ack := decode[CommandAckPayload](t, next(t, a, TypeCmdAck))
	require.Len(t, ack.IDs, 1)
	name := "crate"
	submit(t, h, a, "cmd-2", editor.UpdateShapeCommand{ID: ack.IDs[0], Patch: editor.ShapePatch{Name: &name}})
	drain(b)
	require.True(t, h.room("proj_1").store.IsShapeSelected(ack.IDs[0]))

	h.handleMessage(context.Background(), b, &Message{Type: TypeDocRequest})
	synced := decode[DocSyncPayload](t, next(t, b, TypeDocSync))
	require.Len(t, synced.Document.Shapes, 1)
	assert.Equal(t, "crate", synced.Document.Shapes[0].Name)
	assert.False(t, synced.Document.Shapes[0].Selected)
	require.Len(t, synced.Document.Vertices, 8)
	for _, v := range synced.Document.Vertices {
		assert.False(t, v.Selected)
	}

	h.removeClient(a)
	h.removeClient(b)
	saved, _ := scenes.get("proj_1")
	require.Len(t, saved.Shapes, 1)
	assert.False(t, saved.Shapes[0].Selected)
}

func TestCommandNack(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{})
	a := join(h, "user_a", "c1")

	payload := json.RawMessage(`{"id":"cmd-9","command":{"kind":"explode"}}`)
	h.handleMessage(context.Background(), a, &Message{Type: TypeCmdSubmit, Payload: payload})
	nack := decode[CommandNackPayload](t, next(t, a, TypeCmdNack))
	assert.Equal(t, "cmd-9", nack.CommandID)
	assert.Contains(t, nack.Reason, "unknown command")

	submit(t, h, a, "cmd-10", editor.DeleteVertexCommand{ID: "vtx_missing"})
	nack = decode[CommandNackPayload](t, next(t, a, TypeCmdNack))
	assert.Equal(t, "cmd-10", nack.CommandID)
}

func TestUndoSyncsEveryone(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{})
	a := join(h, "user_a", "c1")
	b := join(h, "user_b", "c2")

	submit(t, h, a, "cmd-1", editor.AddVertexCommand{Vertex: editor.VertexSpec{Position: scene.V3(1, 2, 3)}})
	drain(a)
	drain(b)

	submit(t, h, b, "cmd-2", editor.UndoCommand{})
	for _, c := range []*Client{a, b} {
		synced := decode[DocSyncPayload](t, next(t, c, TypeDocSync))
		assert.Empty(t, synced.Document.Vertices)
		assert.Equal(t, int64(2), synced.ServerSeq)
	}
}

func TestLastLeaveSavesScene(t *testing.T) {
	h, scenes := newTestHub(t, editor.Options{})
	a := join(h, "user_a", "c1")
	b := join(h, "user_b", "c2")
	submit(t, h, a, "cmd-1", editor.AddVertexCommand{Vertex: editor.VertexSpec{Position: scene.V3(1, 0, 0)}})

	h.removeClient(a)
	_, saves := scenes.get("proj_1")
	assert.Zero(t, saves)
	next(t, b, TypePresenceLeave)

	h.removeClient(b)
	doc, saves := scenes.get("proj_1")
	assert.Equal(t, 1, saves)
	assert.Len(t, doc.Vertices, 1)
	assert.Nil(t, h.room("proj_1"))
}

func TestWithStore(t *testing.T) {
	ctx := context.Background()
	h, scenes := newTestHub(t, editor.Options{})

	err := h.WithStore(ctx, "proj_1", true, func(s *editor.Store) error {
		_, err := s.AddVertex(editor.VertexSpec{})
		return err
	})
	require.NoError(t, err)
	doc, saves := scenes.get("proj_1")
	assert.Equal(t, 1, saves)
	assert.Len(t, doc.Vertices, 1)

	var count int
	require.NoError(t, h.WithStore(ctx, "proj_1", false, func(s *editor.Store) error {
		count = s.VertexCount()
		return nil
	}))
	assert.Equal(t, 1, count)
	_, saves = scenes.get("proj_1")
	assert.Equal(t, 1, saves)

	// A live room is edited in place and its clients are resynced.
	a := join(h, "user_a", "c1")
	drain(a)
	require.NoError(t, h.WithStore(ctx, "proj_1", true, func(s *editor.Store) error {
		_, err := s.AddVertex(editor.VertexSpec{})
		return err
	}))
	synced := decode[DocSyncPayload](t, next(t, a, TypeDocSync))
	assert.Len(t, synced.Document.Vertices, 2)
	_, saves = scenes.get("proj_1")
	assert.Equal(t, 1, saves)

	h.saveDirty(ctx)
	doc, saves = scenes.get("proj_1")
	assert.Equal(t, 2, saves)
	assert.Len(t, doc.Vertices, 2)
}

func TestLargeSceneNotice(t *testing.T) {
	h, _ := newTestHub(t, editor.Options{LargeSceneThreshold: 10})
	a := join(h, "user_a", "c1")

	submit(t, h, a, "cmd-1", editor.AddShapeCommand{Shape: editor.ShapeSpec{Type: scene.ShapeCircle, ElementCount: 16}})

	notice := decode[NoticePayload](t, next(t, a, TypeNotice))
	assert.Equal(t, "largeScene", notice.Kind)
	assert.Equal(t, 16, notice.VertexCount)
}

func TestRunAndStop(t *testing.T) {
	h, scenes := newTestHub(t, editor.Options{})
	go h.Run()

	c := NewClient(h, nil, "user_a", "A", "proj_1", "c1")
	h.Register(c)
	next(t, c, TypeWelcome)
	submit(t, h, c, "cmd-1", editor.AddVertexCommand{})

	h.Stop()
	doc, saves := scenes.get("proj_1")
	assert.Equal(t, 1, saves)
	assert.Len(t, doc.Vertices, 1)

	late := NewClient(h, nil, "user_b", "B", "proj_1", "c2")
	h.Register(late)
	_, ok := <-late.send
	assert.False(t, ok)
}
