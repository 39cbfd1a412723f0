package conversation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func stringPtr(s string) *string {
	return &s
}

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi", WithAttachments(
		NewFileAttachment("diagram.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47}),
		NewFileAttachment("notes.txt", "text/plain", []byte("hello")),
	))
	require.NoError(t, tree.AddChild(NullNode, root))
	reply := NewMessage(RoleAssistant, "Hello")
	require.NoError(t, tree.AddChild(root.ID, reply))
	alternate := NewMessage(RoleAssistant, "Hey there")
	require.NoError(t, tree.AddChild(root.ID, alternate))
	followUp := NewMessage(RoleUser, "How are you?")
	require.NoError(t, tree.AddChild(reply.ID, followUp))
	return tree
}

func TestRecordsRoundTripIsStable(t *testing.T) {
	tree := sampleTree(t)

	first := tree.ToRecords()
	rebuilt, err := FromRecords(first, NullNode)
	require.NoError(t, err)
	second := rebuilt.ToRecords()
	require.Equal(t, first, second)
}

func TestRecordsPreserveSelectionAndNullText(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "Hi")
	require.NoError(t, tree.AddChild(NullNode, root))
	placeholder := NewPlaceholder()
	require.NoError(t, tree.AddChild(root.ID, placeholder))

	records := tree.ToRecords()
	require.Len(t, records, 2)
	require.Nil(t, records[0].Parent)
	require.NotNil(t, records[0].CurrentChild)
	require.Equal(t, placeholder.ID, *records[0].CurrentChild)
	require.Nil(t, records[1].Text)

	rebuilt, err := FromRecords(records, NullNode)
	require.NoError(t, err)
	msg, ok := rebuilt.GetMessage(placeholder.ID)
	require.True(t, ok)
	require.Nil(t, msg.Text)
}

func TestImageAttachmentSerializesAsFile(t *testing.T) {
	tree := NewTree()
	root := NewMessage(RoleUser, "look at this", WithAttachments(
		NewFileAttachment("photo.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff}),
	))
	require.NoError(t, tree.AddChild(NullNode, root))

	records := tree.ToRecords()
	require.Len(t, records[0].Attachments, 1)
	require.Equal(t, "file", records[0].Attachments[0].Type)
	require.Equal(t, "image/jpeg", records[0].Attachments[0].MimeType)

	rebuilt, err := FromRecords(records, NullNode)
	require.NoError(t, err)
	msg, ok := rebuilt.GetMessage(root.ID)
	require.True(t, ok)
	require.Len(t, msg.Attachments, 1)
	image, ok := msg.Attachments[0].(*ImageAttachment)
	require.True(t, ok)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, image.Content)
}

func TestLinkAttachmentRoundTrips(t *testing.T) {
	link, err := ParseLinkAttachment("handbook", "https://example.com/handbook")
	require.NoError(t, err)
	tree := NewTree()
	root := NewMessage(RoleUser, "see link", WithAttachments(link))
	require.NoError(t, tree.AddChild(NullNode, root))

	records := tree.ToRecords()
	require.Equal(t, "link", records[0].Attachments[0].Type)
	require.Equal(t, "https://example.com/handbook", records[0].Attachments[0].Data)

	rebuilt, err := FromRecords(records, NullNode)
	require.NoError(t, err)
	msg, _ := rebuilt.GetMessage(root.ID)
	loaded, ok := msg.Attachments[0].(*LinkAttachment)
	require.True(t, ok)
	require.Equal(t, "https://example.com/handbook", loaded.URL.String())
}

func TestFromRecordsRejectsAmbiguousRoot(t *testing.T) {
	records := []Record{
		{ID: NewNodeID(), Origin: RoleUser, Text: stringPtr("one")},
		{ID: NewNodeID(), Origin: RoleUser, Text: stringPtr("two")},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsExplicitRootPicksTree(t *testing.T) {
	first := Record{ID: NewNodeID(), Origin: RoleUser, Text: stringPtr("one")}
	second := Record{ID: NewNodeID(), Origin: RoleUser, Text: stringPtr("two")}

	tree, err := FromRecords([]Record{first, second}, second.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, tree.RootID)
	require.Len(t, tree.Nodes, 1)
}

func TestFromRecordsRejectsEmptyList(t *testing.T) {
	_, err := FromRecords(nil, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsDuplicateIDs(t *testing.T) {
	id := NewNodeID()
	records := []Record{
		{ID: id, Origin: RoleUser},
		{ID: id, Origin: RoleAssistant},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsMissingChild(t *testing.T) {
	records := []Record{
		{ID: NewNodeID(), Origin: RoleUser, Children: []NodeID{NewNodeID()}},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsUnknownOrigin(t *testing.T) {
	records := []Record{
		{ID: NewNodeID(), Origin: "robot"},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsParentMismatch(t *testing.T) {
	parentID := NewNodeID()
	childID := NewNodeID()
	otherID := NewNodeID()
	records := []Record{
		{ID: parentID, Origin: RoleUser, Children: []NodeID{childID}},
		{ID: childID, Parent: &otherID, Origin: RoleAssistant},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsCycles(t *testing.T) {
	firstID := NewNodeID()
	secondID := NewNodeID()
	records := []Record{
		{ID: firstID, Parent: &secondID, Origin: RoleUser, Children: []NodeID{secondID}},
		{ID: secondID, Parent: &firstID, Origin: RoleAssistant, Children: []NodeID{firstID}},
	}

	_, err := FromRecords(records, firstID)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsRejectsForeignCurrentChild(t *testing.T) {
	foreign := NewNodeID()
	records := []Record{
		{ID: NewNodeID(), Origin: RoleUser, CurrentChild: &foreign},
	}

	_, err := FromRecords(records, NullNode)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestFromRecordsDefaultsSelectionToFirstChild(t *testing.T) {
	rootID := NewNodeID()
	firstID := NewNodeID()
	secondID := NewNodeID()
	records := []Record{
		{ID: rootID, Origin: RoleUser, Text: stringPtr("Hi"), Children: []NodeID{firstID, secondID}},
		{ID: firstID, Parent: &rootID, Origin: RoleAssistant, Text: stringPtr("Hello")},
		{ID: secondID, Parent: &rootID, Origin: RoleAssistant, Text: stringPtr("Hey")},
	}

	tree, err := FromRecords(records, NullNode)
	require.NoError(t, err)
	root, ok := tree.GetMessage(rootID)
	require.True(t, ok)
	require.Equal(t, firstID, root.CurrentChild)
}

func TestSaveAndLoadFile(t *testing.T) {
	tree := sampleTree(t)
	dir := t.TempDir()

	for _, name := range []string{"conversation.json", "conversation.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, tree.SaveToFile(path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)
		require.Equal(t, tree.ToRecords(), loaded.ToRecords())
	}
}

func TestLoadRejectsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 42, "origin": "robot"}]`), 0644))

	_, err := LoadFromFile(path)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, err := LoadFromFile(path)
	var serializationErr *SerializationError
	require.ErrorAs(t, err, &serializationErr)
}
