package conversation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NodeID identifies a node in a conversation tree.
type NodeID uuid.UUID

// NullNode is the zero NodeID. A message whose ParentID is NullNode is a
// root; a CurrentChild of NullNode means no child is selected.
var NullNode = NodeID(uuid.Nil)

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NullNode, errors.Wrapf(err, "could not parse node id %s", s)
	}
	return NodeID(u), nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id).String())
}

func (id *NodeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

func (id NodeID) MarshalYAML() (interface{}, error) {
	return uuid.UUID(id).String(), nil
}

func (id *NodeID) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

// ChangeKind labels what a tree mutation did.
type ChangeKind string

const (
	ChangeChildAdded     ChangeKind = "child-added"
	ChangeChildRemoved   ChangeKind = "child-removed"
	ChangeChildSelected  ChangeKind = "child-selected"
	ChangeTextAppended   ChangeKind = "text-appended"
	ChangeThreadAppended ChangeKind = "thread-appended"
	ChangeThreadReplaced ChangeKind = "thread-replaced"
)

// ChangeEvent describes a single tree mutation. ID is the node the change
// happened to, ParentID the parent involved where that applies.
type ChangeEvent struct {
	Kind     ChangeKind
	ID       NodeID
	ParentID NodeID
}

// ChangeListener receives tree change events. Listeners run synchronously
// on the mutating goroutine and must return quickly; anything slow belongs
// on a channel or queue of the listener's own.
type ChangeListener func(ChangeEvent)

// Tree holds a branching conversation: an arena of messages keyed by id
// plus the id of the root. Edges live on the messages themselves but are
// only ever written here, so parents are set exactly once and the children
// lists stay consistent with them.
//
// Tree does no locking. Mutations and reads are expected to happen on a
// single goroutine; the chat session keeps streaming on that model by
// mutating only while the caller pulls from its stream.
type Tree struct {
	Nodes  map[NodeID]*Message
	RootID NodeID

	listeners    map[int]ChangeListener
	nextListener int
}

func NewTree() *Tree {
	return &Tree{
		Nodes:     make(map[NodeID]*Message),
		RootID:    NullNode,
		listeners: make(map[int]ChangeListener),
	}
}

// Subscribe registers a listener for tree changes. The returned function
// removes the listener again; calling it more than once is harmless.
func (t *Tree) Subscribe(listener ChangeListener) func() {
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = listener
	return func() {
		delete(t.listeners, id)
	}
}

func (t *Tree) notify(event ChangeEvent) {
	for _, listener := range t.listeners {
		listener(event)
	}
}

func (t *Tree) GetMessage(id NodeID) (*Message, bool) {
	msg, ok := t.Nodes[id]
	return msg, ok
}

// Root returns the root message, or nil for an empty tree.
func (t *Tree) Root() *Message {
	if t.RootID == NullNode {
		return nil
	}
	return t.Nodes[t.RootID]
}

// AddChild attaches child under parentID and selects it as the parent's
// current child. Passing NullNode as parentID roots an empty tree. A
// message is attached at most once: attaching it under a second parent is
// a structural error, re-attaching it under its existing parent a no-op.
func (t *Tree) AddChild(parentID NodeID, child *Message) error {
	attached, err := t.attach("add-child", parentID, child)
	if err != nil {
		return err
	}
	if attached {
		t.notify(ChangeEvent{Kind: ChangeChildAdded, ID: child.ID, ParentID: parentID})
	}
	return nil
}

// AppendThread attaches messages as a chain: the first under parentID (or
// as the root of an empty tree when parentID is NullNode), each further
// message under the previous one, moving the current child selection along
// the chain. The whole chain counts as one change and produces a single
// notification.
func (t *Tree) AppendThread(parentID NodeID, messages ...*Message) error {
	if len(messages) == 0 {
		return nil
	}
	current := parentID
	for _, msg := range messages {
		if _, err := t.attach("append-thread", current, msg); err != nil {
			return err
		}
		current = msg.ID
	}
	t.notify(ChangeEvent{
		Kind:     ChangeThreadAppended,
		ID:       messages[len(messages)-1].ID,
		ParentID: parentID,
	})
	return nil
}

func (t *Tree) attach(op string, parentID NodeID, child *Message) (bool, error) {
	if child == nil {
		return false, structuralErrorf(op, NullNode, "cannot attach nil message")
	}
	if parentID == NullNode {
		if t.RootID != NullNode {
			return false, structuralErrorf(op, child.ID, "tree already has a root")
		}
		if child.ParentID != NullNode {
			return false, structuralErrorf(op, child.ID, "parent already set to %s", child.ParentID)
		}
		if _, ok := t.Nodes[child.ID]; ok {
			return false, structuralErrorf(op, child.ID, "node already in tree")
		}
		t.Nodes[child.ID] = child
		t.RootID = child.ID
		return true, nil
	}

	parent, ok := t.Nodes[parentID]
	if !ok {
		return false, structuralErrorf(op, parentID, "parent not found")
	}
	if child.ParentID == parentID {
		if _, ok := t.Nodes[child.ID]; ok {
			return false, nil
		}
	} else if child.ParentID != NullNode {
		return false, structuralErrorf(op, child.ID, "parent already set to %s", child.ParentID)
	}
	if _, ok := t.Nodes[child.ID]; ok {
		return false, structuralErrorf(op, child.ID, "node already in tree")
	}

	child.ParentID = parentID
	t.Nodes[child.ID] = child
	parent.Children = append(parent.Children, child.ID)
	parent.CurrentChild = child.ID
	return true, nil
}

// RemoveChild detaches childID from parentID and drops the detached
// subtree from the arena. Removing an id that is not a child of parentID
// is a no-op. The parent's current child resets to its first remaining
// child, or NullNode when none are left.
func (t *Tree) RemoveChild(parentID NodeID, childID NodeID) error {
	parent, ok := t.Nodes[parentID]
	if !ok {
		return structuralErrorf("remove-child", parentID, "parent not found")
	}

	idx := -1
	for i, id := range parent.Children {
		if id == childID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	if len(parent.Children) > 0 {
		parent.CurrentChild = parent.Children[0]
	} else {
		parent.CurrentChild = NullNode
	}
	t.dropSubtree(childID)
	t.notify(ChangeEvent{Kind: ChangeChildRemoved, ID: childID, ParentID: parentID})
	return nil
}

func (t *Tree) dropSubtree(id NodeID) {
	msg, ok := t.Nodes[id]
	if !ok {
		return
	}
	for _, childID := range msg.Children {
		t.dropSubtree(childID)
	}
	delete(t.Nodes, id)
}

// NextChild moves the node's current child selection one sibling forward,
// clamped at the last child. Nothing happens for a node without children
// or with the last child already selected.
func (t *Tree) NextChild(id NodeID) error {
	return t.moveSelection("next-child", id, 1)
}

// PreviousChild moves the selection one sibling back, clamped at the
// first child.
func (t *Tree) PreviousChild(id NodeID) error {
	return t.moveSelection("previous-child", id, -1)
}

func (t *Tree) moveSelection(op string, id NodeID, step int) error {
	msg, ok := t.Nodes[id]
	if !ok {
		return structuralErrorf(op, id, "node not found")
	}
	if len(msg.Children) == 0 {
		return nil
	}

	idx := -1
	for i, childID := range msg.Children {
		if childID == msg.CurrentChild {
			idx = i
			break
		}
	}
	next := idx + step
	if next < 0 {
		next = 0
	}
	if next > len(msg.Children)-1 {
		next = len(msg.Children) - 1
	}
	if idx >= 0 && msg.Children[next] == msg.CurrentChild {
		return nil
	}

	msg.CurrentChild = msg.Children[next]
	t.notify(ChangeEvent{Kind: ChangeChildSelected, ID: msg.CurrentChild, ParentID: id})
	return nil
}

// AppendText appends a fragment to the node's text, creating the text on
// the first append for a placeholder. LastUpdate moves with every append.
func (t *Tree) AppendText(id NodeID, fragment string) error {
	msg, ok := t.Nodes[id]
	if !ok {
		return structuralErrorf("append-text", id, "node not found")
	}
	if msg.Text == nil {
		text := fragment
		msg.Text = &text
	} else {
		*msg.Text += fragment
	}
	msg.LastUpdate = time.Now()
	t.notify(ChangeEvent{Kind: ChangeTextAppended, ID: id, ParentID: msg.ParentID})
	return nil
}

// ChainReverse returns the path from id up to the root, starting at id.
func (t *Tree) ChainReverse(id NodeID) Conversation {
	var out Conversation
	for id != NullNode {
		msg, ok := t.Nodes[id]
		if !ok {
			break
		}
		out = append(out, msg)
		id = msg.ParentID
	}
	return out
}

// Chain returns the path from the root down to id.
func (t *Tree) Chain(id NodeID) Conversation {
	reversed := t.ChainReverse(id)
	out := make(Conversation, len(reversed))
	for i, msg := range reversed {
		out[len(reversed)-1-i] = msg
	}
	return out
}

// ActiveChain walks CurrentChild links down from the root and returns the
// selected path, the one a UI shows and backends receive as history.
func (t *Tree) ActiveChain() Conversation {
	var out Conversation
	id := t.RootID
	for id != NullNode {
		msg, ok := t.Nodes[id]
		if !ok {
			break
		}
		out = append(out, msg)
		id = msg.CurrentChild
	}
	return out
}

// Tail returns the last message of the active chain, or nil for an empty
// tree.
func (t *Tree) Tail() *Message {
	chain := t.ActiveChain()
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

// ReplaceThread discards the whole tree and rebuilds it as a single linear
// chain of the given messages, resetting whatever edges they carried
// before. Listeners stay subscribed and see exactly one notification for
// the swap. Replacing with no messages empties the tree.
func (t *Tree) ReplaceThread(messages ...*Message) error {
	for _, msg := range messages {
		if msg == nil {
			return structuralErrorf("replace-thread", NullNode, "cannot attach nil message")
		}
		msg.ParentID = NullNode
		msg.Children = nil
		msg.CurrentChild = NullNode
	}

	replacement := NewTree()
	if err := replacement.AppendThread(NullNode, messages...); err != nil {
		return err
	}
	t.Nodes = replacement.Nodes
	t.RootID = replacement.RootID
	t.notify(ChangeEvent{Kind: ChangeThreadReplaced, ID: t.RootID, ParentID: NullNode})
	return nil
}
