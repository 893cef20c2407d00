package collab

import (
	"encoding/json"

	"github.com/fxlayout/fxlayout/internal/scene"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is a point in scene space.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"
	TypeNotice         = "notice"

	// Connection
	TypeWelcome = "welcome"

	// Scene sync
	TypeDocSync    = "doc.sync"
	TypeDocRequest = "doc.request"

	// Commands
	TypeCmdSubmit    = "cmd.submit"
	TypeCmdAck       = "cmd.ack"
	TypeCmdNack      = "cmd.nack"
	TypeCmdBroadcast = "cmd.broadcast"
)

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	ServerSeq int64  `json:"serverSeq"`
}

// DocSyncPayload carries the full scene. Clients replace their local copy.
type DocSyncPayload struct {
	Document  scene.Document `json:"document"`
	ServerSeq int64          `json:"serverSeq"`
}

// CommandSubmitPayload wraps an encoded editor command with a client-chosen id.
type CommandSubmitPayload struct {
	ID      string          `json:"id"`
	Command json.RawMessage `json:"command"`
}

type CommandAckPayload struct {
	CommandID string   `json:"commandId"`
	ServerSeq int64    `json:"serverSeq"`
	IDs       []string `json:"ids,omitempty"`
	Applied   bool     `json:"applied"`
}

type CommandNackPayload struct {
	CommandID string `json:"commandId"`
	Reason    string `json:"reason"`
}

// CommandBroadcastPayload tells the other clients of a room about an applied
// command. IDs are the entity ids the server assigned while applying it.
type CommandBroadcastPayload struct {
	Command   json.RawMessage `json:"command"`
	UserID    string          `json:"userId"`
	ServerSeq int64           `json:"serverSeq"`
	IDs       []string        `json:"ids,omitempty"`
}

type NoticePayload struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	VertexCount int    `json:"vertexCount,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: data}, nil
}
