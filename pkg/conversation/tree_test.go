package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddChildSetsParentAndSelection(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	require.Equal(t, root.ID, tree.RootID)

	reply := NewPlaceholder()
	require.NoError(t, tree.AddChild(root.ID, reply))
	require.Equal(t, root.ID, reply.ParentID)
	require.Equal(t, []NodeID{reply.ID}, root.Children)
	require.Equal(t, reply.ID, root.CurrentChild)
}

func TestAddChildEnforcesSetOnceParent(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	reply := NewMessage(RoleAssistant, "Hello")
	require.NoError(t, tree.AddChild(root.ID, reply))
	followUp := NewMessage(RoleUser, "How are you?")
	require.NoError(t, tree.AddChild(reply.ID, followUp))

	err := tree.AddChild(root.ID, followUp)
	var structuralErr *StructuralError
	require.ErrorAs(t, err, &structuralErr)
	require.Equal(t, reply.ID, followUp.ParentID)
}

func TestAddChildToSameParentTwiceIsNoOp(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	reply := NewMessage(RoleAssistant, "Hello")
	require.NoError(t, tree.AddChild(root.ID, reply))

	require.NoError(t, tree.AddChild(root.ID, reply))
	require.Equal(t, []NodeID{reply.ID}, root.Children)
}

func TestAddChildToUnknownParentFails(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.AddChild(NullNode, NewMessage(RoleUser, "Hi")))

	err := tree.AddChild(NewNodeID(), NewMessage(RoleAssistant, "lost"))
	var structuralErr *StructuralError
	require.ErrorAs(t, err, &structuralErr)
}

func TestAppendThreadNotifiesOnce(t *testing.T) {
	tree := NewTree()
	var events []ChangeEvent
	cancel := tree.Subscribe(func(event ChangeEvent) {
		events = append(events, event)
	})
	defer cancel()

	user := NewMessage(RoleUser, "Hi")
	placeholder := NewPlaceholder()
	require.NoError(t, tree.AppendThread(NullNode, user, placeholder))

	require.Len(t, events, 1)
	require.Equal(t, ChangeThreadAppended, events[0].Kind)
	require.Equal(t, placeholder.ID, events[0].ID)
	require.Equal(t, user.ID, tree.RootID)
	require.Equal(t, placeholder.ID, user.CurrentChild)
	require.Equal(t, user.ID, placeholder.ParentID)
}

func TestRemoveChildIgnoresUnknownChild(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))

	var events []ChangeEvent
	cancel := tree.Subscribe(func(event ChangeEvent) {
		events = append(events, event)
	})
	defer cancel()

	require.NoError(t, tree.RemoveChild(root.ID, NewNodeID()))
	require.Empty(t, events)
}

func TestRemoveChildReselectsFirstRemaining(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	first := NewMessage(RoleAssistant, "Hello")
	second := NewMessage(RoleAssistant, "Hey there")
	require.NoError(t, tree.AddChild(root.ID, first))
	require.NoError(t, tree.AddChild(root.ID, second))
	require.Equal(t, second.ID, root.CurrentChild)

	require.NoError(t, tree.RemoveChild(root.ID, second.ID))
	require.Equal(t, []NodeID{first.ID}, root.Children)
	require.Equal(t, first.ID, root.CurrentChild)
	_, ok := tree.GetMessage(second.ID)
	require.False(t, ok)

	require.NoError(t, tree.RemoveChild(root.ID, first.ID))
	require.Empty(t, root.Children)
	require.Equal(t, NullNode, root.CurrentChild)
}

func TestRemoveChildDropsSubtree(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	reply := NewMessage(RoleAssistant, "Hello")
	require.NoError(t, tree.AddChild(root.ID, reply))
	followUp := NewMessage(RoleUser, "How are you?")
	require.NoError(t, tree.AddChild(reply.ID, followUp))

	require.NoError(t, tree.RemoveChild(root.ID, reply.ID))
	require.Len(t, tree.Nodes, 1)
}

func TestSelectionClampsAtEnds(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	first := NewMessage(RoleAssistant, "Hello")
	second := NewMessage(RoleAssistant, "Hey there")
	require.NoError(t, tree.AddChild(root.ID, first))
	require.NoError(t, tree.AddChild(root.ID, second))

	var events []ChangeEvent
	cancel := tree.Subscribe(func(event ChangeEvent) {
		events = append(events, event)
	})
	defer cancel()

	require.NoError(t, tree.PreviousChild(root.ID))
	require.Equal(t, first.ID, root.CurrentChild)
	require.NoError(t, tree.PreviousChild(root.ID))
	require.Equal(t, first.ID, root.CurrentChild)

	require.NoError(t, tree.NextChild(root.ID))
	require.Equal(t, second.ID, root.CurrentChild)
	require.NoError(t, tree.NextChild(root.ID))
	require.Equal(t, second.ID, root.CurrentChild)

	// only the two moves that changed the selection notified
	require.Len(t, events, 2)
	require.Equal(t, ChangeChildSelected, events[0].Kind)
}

func TestSelectionIgnoresNodesWithoutChildren(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))

	require.NoError(t, tree.NextChild(root.ID))
	require.NoError(t, tree.PreviousChild(root.ID))
	require.Equal(t, NullNode, root.CurrentChild)

	err := tree.NextChild(NewNodeID())
	var structuralErr *StructuralError
	require.ErrorAs(t, err, &structuralErr)
}

func TestAppendTextAccumulates(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	placeholder := NewPlaceholder()
	require.NoError(t, tree.AddChild(root.ID, placeholder))
	require.Nil(t, placeholder.Text)

	var events []ChangeEvent
	cancel := tree.Subscribe(func(event ChangeEvent) {
		events = append(events, event)
	})
	defer cancel()

	require.NoError(t, tree.AppendText(placeholder.ID, "Hel"))
	require.NoError(t, tree.AppendText(placeholder.ID, "lo"))

	require.Equal(t, "Hello", placeholder.TextOrEmpty())
	require.Len(t, events, 2)
	require.Equal(t, ChangeTextAppended, events[0].Kind)
	require.Equal(t, placeholder.ID, events[0].ID)

	err := tree.AppendText(NewNodeID(), "nope")
	var structuralErr *StructuralError
	require.ErrorAs(t, err, &structuralErr)
}

func TestActiveChainFollowsSelection(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	first := NewMessage(RoleAssistant, "Hello")
	second := NewMessage(RoleAssistant, "Hey there")
	require.NoError(t, tree.AddChild(root.ID, first))
	require.NoError(t, tree.AddChild(root.ID, second))

	chain := tree.ActiveChain()
	require.Len(t, chain, 2)
	require.Equal(t, second.ID, chain[1].ID)
	require.Equal(t, second.ID, tree.Tail().ID)

	require.NoError(t, tree.PreviousChild(root.ID))
	chain = tree.ActiveChain()
	require.Equal(t, first.ID, chain[1].ID)
}

func TestChainWalksRootToNode(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	reply := NewMessage(RoleAssistant, "Hello")
	require.NoError(t, tree.AddChild(root.ID, reply))
	followUp := NewMessage(RoleUser, "How are you?")
	require.NoError(t, tree.AddChild(reply.ID, followUp))

	chain := tree.Chain(followUp.ID)
	require.Len(t, chain, 3)
	require.Equal(t, root.ID, chain[0].ID)
	require.Equal(t, followUp.ID, chain[2].ID)

	reversed := tree.ChainReverse(followUp.ID)
	require.Equal(t, followUp.ID, reversed[0].ID)
	require.Equal(t, root.ID, reversed[2].ID)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	tree := NewTree()
	count := 0
	cancel := tree.Subscribe(func(ChangeEvent) {
		count++
	})

	require.NoError(t, tree.AddChild(NullNode, NewMessage(RoleUser, "Hi")))
	require.Equal(t, 1, count)

	cancel()
	cancel()
	require.NoError(t, tree.AddChild(tree.RootID, NewMessage(RoleAssistant, "Hello")))
	require.Equal(t, 1, count)
}

func TestReplaceThreadRebuildsLinearHistory(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	first := NewMessage(RoleAssistant, "Hello")
	second := NewMessage(RoleAssistant, "Hey there")
	require.NoError(t, tree.AddChild(root.ID, first))
	require.NoError(t, tree.AddChild(root.ID, second))

	var events []ChangeEvent
	cancel := tree.Subscribe(func(event ChangeEvent) {
		events = append(events, event)
	})
	defer cancel()

	// reuse messages from the old tree, with the branch dropped
	require.NoError(t, tree.ReplaceThread(root, first))

	require.Len(t, events, 1)
	require.Equal(t, ChangeThreadReplaced, events[0].Kind)
	chain := tree.ActiveChain()
	require.Len(t, chain, 2)
	require.Equal(t, root.ID, chain[0].ID)
	require.Equal(t, first.ID, chain[1].ID)
	require.Len(t, tree.Nodes, 2)

	require.NoError(t, tree.ReplaceThread())
	require.Empty(t, tree.Nodes)
	require.Equal(t, NullNode, tree.RootID)
}
