package conversation

import (
	"time"
)

// Role says who authored a message. Conversation trees only ever hold user
// and assistant messages; system prompts are session configuration and do
// not appear as nodes.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single node in a conversation tree.
//
// The edge fields (ParentID, Children, CurrentChild) are owned by the Tree:
// they are only ever written by Tree operations, never by callers. A parent
// is set exactly once, when the message is attached.
//
// Text is nil for an assistant placeholder that has not received any
// fragments yet; it accrues through Tree.AppendText afterwards.
type Message struct {
	ID       NodeID
	ParentID NodeID

	Origin      Role
	Text        *string
	Attachments []Attachment

	Children     []NodeID
	CurrentChild NodeID

	Time       time.Time
	LastUpdate time.Time

	Metadata map[string]interface{}
}

type MessageOption func(*Message)

func WithID(id NodeID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

// WithTime sets the creation time and the initial LastUpdate.
func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
		m.LastUpdate = t
	}
}

func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(m *Message) {
		m.Metadata = metadata
	}
}

func WithAttachments(attachments ...Attachment) MessageOption {
	return func(m *Message) {
		m.Attachments = attachments
	}
}

// NewMessage creates a detached message with a fresh id. Attach it to a
// tree with Tree.AddChild or Tree.AppendThread.
func NewMessage(origin Role, text string, options ...MessageOption) *Message {
	m := newMessage(origin)
	m.Text = &text
	for _, option := range options {
		option(m)
	}
	return m
}

// NewPlaceholder creates an empty assistant message, the node a streaming
// completion accrues into. Its text stays nil until the first fragment.
func NewPlaceholder(options ...MessageOption) *Message {
	m := newMessage(RoleAssistant)
	for _, option := range options {
		option(m)
	}
	return m
}

func newMessage(origin Role) *Message {
	now := time.Now()
	return &Message{
		ID:           NewNodeID(),
		ParentID:     NullNode,
		Origin:       origin,
		CurrentChild: NullNode,
		Time:         now,
		LastUpdate:   now,
	}
}

// TextOrEmpty returns the message text, treating a placeholder's nil text
// as the empty string.
func (m *Message) TextOrEmpty() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// Conversation is a linear sequence of messages, root first. It is what
// backends receive: a single path through a tree, not the tree itself.
type Conversation []*Message

// LastText returns the text of the final message, or "" for an empty
// conversation.
func (c Conversation) LastText() string {
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1].TextOrEmpty()
}
