package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// Command is one mutation of the store. The set of commands is closed; Apply
// handles every kind.
type Command interface {
	Kind() string
	isCommand()
}

type AddVertexCommand struct {
	Vertex VertexSpec `json:"vertex"`
}

type AddVerticesCommand struct {
	Vertices []VertexSpec `json:"vertices"`
}

type UpdateVertexCommand struct {
	ID    string      `json:"id"`
	Patch VertexPatch `json:"patch"`
}

type UpdateVerticesCommand struct {
	Updates []VertexUpdate `json:"updates"`
}

type DeleteVertexCommand struct {
	ID string `json:"id"`
}

type AddShapeCommand struct {
	Shape ShapeSpec `json:"shape"`
}

type UpdateShapeCommand struct {
	ID    string     `json:"id"`
	Patch ShapePatch `json:"patch"`
}

// UpdateShapesCommand runs full shape updates, or transform-only merges when
// Batch is set (drag commits send owned vertices separately).
type UpdateShapesCommand struct {
	Updates []ShapeUpdate `json:"updates"`
	Batch   bool          `json:"batch,omitempty"`
}

type DeleteShapeCommand struct {
	ID string `json:"id"`
}

type ClearShapeVerticesCommand struct {
	ID string `json:"id"`
}

type ImportShapeCommand struct {
	Positions []scene.Vec3 `json:"positions"`
	Layer     string       `json:"layer,omitempty"`
}

type AddLayerCommand struct {
	Layer scene.Layer `json:"layer"`
}

type UpdateLayerCommand struct {
	ID    string     `json:"id"`
	Patch LayerPatch `json:"patch"`
}

type DeleteLayerCommand struct {
	ID string `json:"id"`
}

type UndoCommand struct{}

type RedoCommand struct{}

func (AddVertexCommand) Kind() string          { return "addVertex" }
func (AddVerticesCommand) Kind() string        { return "addVertices" }
func (UpdateVertexCommand) Kind() string       { return "updateVertex" }
func (UpdateVerticesCommand) Kind() string     { return "updateVertices" }
func (DeleteVertexCommand) Kind() string       { return "deleteVertex" }
func (AddShapeCommand) Kind() string           { return "addShape" }
func (UpdateShapeCommand) Kind() string        { return "updateShape" }
func (UpdateShapesCommand) Kind() string       { return "updateShapes" }
func (DeleteShapeCommand) Kind() string        { return "deleteShape" }
func (ClearShapeVerticesCommand) Kind() string { return "clearShapeVertices" }
func (ImportShapeCommand) Kind() string        { return "importShape" }
func (AddLayerCommand) Kind() string           { return "addLayer" }
func (UpdateLayerCommand) Kind() string        { return "updateLayer" }
func (DeleteLayerCommand) Kind() string        { return "deleteLayer" }
func (UndoCommand) Kind() string               { return "undo" }
func (RedoCommand) Kind() string               { return "redo" }

func (AddVertexCommand) isCommand()          {}
func (AddVerticesCommand) isCommand()        {}
func (UpdateVertexCommand) isCommand()       {}
func (UpdateVerticesCommand) isCommand()     {}
func (DeleteVertexCommand) isCommand()       {}
func (AddShapeCommand) isCommand()           {}
func (UpdateShapeCommand) isCommand()        {}
func (UpdateShapesCommand) isCommand()       {}
func (DeleteShapeCommand) isCommand()        {}
func (ClearShapeVerticesCommand) isCommand() {}
func (ImportShapeCommand) isCommand()        {}
func (AddLayerCommand) isCommand()           {}
func (UpdateLayerCommand) isCommand()        {}
func (DeleteLayerCommand) isCommand()        {}
func (UndoCommand) isCommand()               {}
func (RedoCommand) isCommand()               {}

// Result reports what a command did. IDs holds the ids it created.
type Result struct {
	IDs     []string `json:"ids,omitempty"`
	Applied bool     `json:"applied"`
}

// Apply runs cmd against the store. Update commands write one history entry
// once they complete.
func (s *Store) Apply(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case AddVertexCommand:
		id, err := s.AddVertex(c.Vertex)
		return created(err, id)
	case AddVerticesCommand:
		ids, err := s.AddVerticesBatch(c.Vertices)
		return created(err, ids...)
	case UpdateVertexCommand:
		if err := s.UpdateVertex(c.ID, c.Patch); err != nil {
			return Result{}, err
		}
		s.SaveToHistory(false)
	case UpdateVerticesCommand:
		if err := s.UpdateVerticesBatch(ctx, c.Updates); err != nil {
			return Result{}, err
		}
		s.SaveToHistory(false)
	case DeleteVertexCommand:
		return applied(s.DeleteVertex(c.ID))
	case AddShapeCommand:
		id, err := s.AddShape(c.Shape)
		return created(err, id)
	case UpdateShapeCommand:
		return applied(s.UpdateShape(c.ID, c.Patch))
	case UpdateShapesCommand:
		if !c.Batch {
			s.UpdateMultipleShapes(c.Updates)
			break
		}
		if err := s.UpdateShapesBatch(ctx, c.Updates); err != nil {
			return Result{}, err
		}
		s.SaveToHistory(false)
	case DeleteShapeCommand:
		return applied(s.DeleteShape(c.ID))
	case ClearShapeVerticesCommand:
		return applied(s.ClearShapeVertices(c.ID))
	case ImportShapeCommand:
		id, err := s.ImportShape(c.Positions, c.Layer)
		return created(err, id)
	case AddLayerCommand:
		id, err := s.AddLayer(c.Layer)
		return created(err, id)
	case UpdateLayerCommand:
		return applied(s.UpdateLayer(c.ID, c.Patch))
	case DeleteLayerCommand:
		return applied(s.DeleteLayer(c.ID))
	case UndoCommand:
		return Result{Applied: s.Undo()}, nil
	case RedoCommand:
		return Result{Applied: s.Redo()}, nil
	default:
		return Result{}, fmt.Errorf("apply %T: %w", cmd, ErrUnknownCommand)
	}
	return Result{Applied: true}, nil
}

func created(err error, ids ...string) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{IDs: ids, Applied: true}, nil
}

func applied(err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true}, nil
}

// envelope is the wire form of a command.
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var decoders = map[string]func(json.RawMessage) (Command, error){
	"addVertex":          decodeAs[AddVertexCommand],
	"addVertices":        decodeAs[AddVerticesCommand],
	"updateVertex":       decodeAs[UpdateVertexCommand],
	"updateVertices":     decodeAs[UpdateVerticesCommand],
	"deleteVertex":       decodeAs[DeleteVertexCommand],
	"addShape":           decodeAs[AddShapeCommand],
	"updateShape":        decodeAs[UpdateShapeCommand],
	"updateShapes":       decodeAs[UpdateShapesCommand],
	"deleteShape":        decodeAs[DeleteShapeCommand],
	"clearShapeVertices": decodeAs[ClearShapeVerticesCommand],
	"importShape":        decodeAs[ImportShapeCommand],
	"addLayer":           decodeAs[AddLayerCommand],
	"updateLayer":        decodeAs[UpdateLayerCommand],
	"deleteLayer":        decodeAs[DeleteLayerCommand],
	"undo":               decodeAs[UndoCommand],
	"redo":               decodeAs[RedoCommand],
}

// EncodeCommand wraps cmd in a {"kind","payload"} envelope.
func EncodeCommand(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}
	return json.Marshal(envelope{Kind: cmd.Kind(), Payload: payload})
}

// DecodeCommand parses an envelope produced by EncodeCommand.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	decode, ok := decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("decode command %q: %w", env.Kind, ErrUnknownCommand)
	}
	cmd, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return cmd, nil
}

func decodeAs[T Command](payload json.RawMessage) (Command, error) {
	var c T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
