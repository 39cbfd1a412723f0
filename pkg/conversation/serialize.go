package conversation

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Record is the flat serialized form of a single tree node. A conversation
// tree is stored as a list of records; FromRecords rebuilds the tree by
// resolving ids.
type Record struct {
	ID           NodeID             `json:"id" yaml:"id"`
	Parent       *NodeID            `json:"parent" yaml:"parent"`
	Children     []NodeID           `json:"children" yaml:"children"`
	CurrentChild *NodeID            `json:"current_child" yaml:"current_child"`
	Origin       Role               `json:"origin" yaml:"origin"`
	Text         *string            `json:"text" yaml:"text"`
	Attachments  []RecordAttachment `json:"attachments" yaml:"attachments"`
}

// RecordAttachment is the serialized form of an attachment. Images are
// stored as plain files and rediscovered from their mime type on load.
// Data holds base64 content for files and the URL for links.
type RecordAttachment struct {
	Type     string `json:"type" yaml:"type"`
	Name     string `json:"name" yaml:"name"`
	MimeType string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	Data     string `json:"data" yaml:"data"`
}

const recordListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "origin"],
    "properties": {
      "id": {"type": "string"},
      "parent": {"type": ["string", "null"]},
      "children": {"type": "array", "items": {"type": "string"}},
      "current_child": {"type": ["string", "null"]},
      "origin": {"enum": ["user", "assistant"]},
      "text": {"type": ["string", "null"]},
      "attachments": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["type", "name", "data"],
          "properties": {
            "type": {"enum": ["file", "link"]},
            "name": {"type": "string"},
            "mimeType": {"type": "string"},
            "data": {"type": "string"}
          }
        }
      }
    }
  }
}`

// ToRecords flattens the tree into records, parents before children.
// Serializing the result and feeding it back through FromRecords yields
// the same record list again.
func (t *Tree) ToRecords() []Record {
	records := make([]Record, 0, len(t.Nodes))
	t.appendRecords(&records, t.RootID)
	return records
}

func (t *Tree) appendRecords(records *[]Record, id NodeID) {
	if id == NullNode {
		return
	}
	msg, ok := t.Nodes[id]
	if !ok {
		return
	}
	*records = append(*records, newRecord(msg))
	for _, childID := range msg.Children {
		t.appendRecords(records, childID)
	}
}

func newRecord(msg *Message) Record {
	record := Record{
		ID:          msg.ID,
		Origin:      msg.Origin,
		Children:    append([]NodeID{}, msg.Children...),
		Attachments: make([]RecordAttachment, 0, len(msg.Attachments)),
	}
	if msg.ParentID != NullNode {
		parent := msg.ParentID
		record.Parent = &parent
	}
	if msg.CurrentChild != NullNode {
		current := msg.CurrentChild
		record.CurrentChild = &current
	}
	if msg.Text != nil {
		text := *msg.Text
		record.Text = &text
	}
	for _, attachment := range msg.Attachments {
		record.Attachments = append(record.Attachments, newRecordAttachment(attachment))
	}
	return record
}

func newRecordAttachment(attachment Attachment) RecordAttachment {
	if link, ok := attachment.(*LinkAttachment); ok {
		return RecordAttachment{
			Type: string(AttachmentTypeLink),
			Name: link.Name,
			Data: link.URL.String(),
		}
	}
	file := fileAttachmentOf(attachment)
	return RecordAttachment{
		Type:     string(AttachmentTypeFile),
		Name:     file.Name,
		MimeType: file.MimeType,
		Data:     base64.StdEncoding.EncodeToString(file.Content),
	}
}

func fileAttachmentOf(attachment Attachment) *FileAttachment {
	switch a := attachment.(type) {
	case *ImageAttachment:
		return &a.FileAttachment
	case *FileAttachment:
		return a
	}
	return &FileAttachment{}
}

// FromRecords rebuilds a tree from records. With rootID == NullNode the
// root is the single record without a parent; pass an explicit rootID to
// pick the root when the list holds several parentless records. Records
// not reachable from the root are ignored.
func FromRecords(records []Record, rootID NodeID) (*Tree, error) {
	if len(records) == 0 {
		return nil, serializationErrorf("no records")
	}

	index := make(map[NodeID]*Record, len(records))
	for i := range records {
		record := &records[i]
		if _, ok := index[record.ID]; ok {
			return nil, serializationErrorf("duplicate record id %s", record.ID)
		}
		index[record.ID] = record
	}

	if rootID == NullNode {
		var roots []NodeID
		for i := range records {
			if records[i].Parent == nil {
				roots = append(roots, records[i].ID)
			}
		}
		switch len(roots) {
		case 0:
			return nil, serializationErrorf("no root record, every record has a parent")
		case 1:
			rootID = roots[0]
		default:
			return nil, serializationErrorf("ambiguous root, %d records have no parent", len(roots))
		}
	}

	rootRecord, ok := index[rootID]
	if !ok {
		return nil, serializationErrorf("root record %s not found", rootID)
	}

	tree := NewTree()
	resolving := make(map[NodeID]bool)
	root, err := resolveRecord(tree, index, rootRecord, resolving)
	if err != nil {
		return nil, err
	}
	tree.RootID = root.ID
	return tree, nil
}

func resolveRecord(tree *Tree, index map[NodeID]*Record, record *Record, resolving map[NodeID]bool) (*Message, error) {
	if resolving[record.ID] {
		return nil, serializationErrorf("record %s resolved twice, records do not form a tree", record.ID)
	}
	resolving[record.ID] = true

	if record.Origin != RoleUser && record.Origin != RoleAssistant {
		return nil, serializationErrorf("record %s has unknown origin %q", record.ID, record.Origin)
	}
	attachments, err := decodeAttachments(record)
	if err != nil {
		return nil, err
	}

	msg := newMessage(record.Origin)
	msg.ID = record.ID
	msg.Attachments = attachments
	if record.Text != nil {
		text := *record.Text
		msg.Text = &text
	}
	tree.Nodes[msg.ID] = msg

	for _, childID := range record.Children {
		childRecord, ok := index[childID]
		if !ok {
			return nil, serializationErrorf("child %s of record %s not found", childID, record.ID)
		}
		if childRecord.Parent == nil || *childRecord.Parent != record.ID {
			return nil, serializationErrorf("record %s is listed as child of %s but names a different parent", childID, record.ID)
		}
		child, err := resolveRecord(tree, index, childRecord, resolving)
		if err != nil {
			return nil, err
		}
		child.ParentID = record.ID
		msg.Children = append(msg.Children, child.ID)
	}

	if record.CurrentChild != nil {
		found := false
		for _, childID := range msg.Children {
			if childID == *record.CurrentChild {
				found = true
				break
			}
		}
		if !found {
			return nil, serializationErrorf("current child %s of record %s is not among its children", *record.CurrentChild, record.ID)
		}
		msg.CurrentChild = *record.CurrentChild
	} else if len(msg.Children) > 0 {
		// hand-written records may omit current_child; select the first child
		msg.CurrentChild = msg.Children[0]
	}

	return msg, nil
}

func decodeAttachments(record *Record) ([]Attachment, error) {
	if len(record.Attachments) == 0 {
		return nil, nil
	}
	attachments := make([]Attachment, 0, len(record.Attachments))
	for _, ra := range record.Attachments {
		switch AttachmentType(ra.Type) {
		case AttachmentTypeFile:
			content, err := base64.StdEncoding.DecodeString(ra.Data)
			if err != nil {
				return nil, serializationErrorf("attachment %q of record %s has invalid base64 data: %v", ra.Name, record.ID, err)
			}
			attachments = append(attachments, NewFileAttachment(ra.Name, ra.MimeType, content))
		case AttachmentTypeLink:
			link, err := ParseLinkAttachment(ra.Name, ra.Data)
			if err != nil {
				return nil, serializationErrorf("attachment %q of record %s has invalid url: %v", ra.Name, record.ID, err)
			}
			attachments = append(attachments, link)
		default:
			return nil, serializationErrorf("attachment %q of record %s has unknown type %q", ra.Name, record.ID, ra.Type)
		}
	}
	return attachments, nil
}

// SaveToFile writes the tree to a json or yaml file, chosen by extension.
func (t *Tree) SaveToFile(filename string) error {
	records := t.ToRecords()

	var data []byte
	var err error
	if isYAMLFile(filename) {
		data, err = yaml.Marshal(records)
	} else {
		data, err = json.MarshalIndent(records, "", "  ")
	}
	if err != nil {
		return errors.Wrapf(err, "could not marshal conversation to %s", filename)
	}

	return os.WriteFile(filename, data, 0644)
}

// LoadFromFile reads a record list from a json or yaml file, validates its
// shape and rebuilds the tree. Shape violations and unresolvable records
// surface as *SerializationError.
func LoadFromFile(filename string) (*Tree, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read conversation file %s", filename)
	}

	var raw interface{}
	var records []Record
	if isYAMLFile(filename) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, serializationErrorf("invalid yaml in %s: %v", filename, err)
		}
		if err := validateRecordShape(raw); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, serializationErrorf("invalid records in %s: %v", filename, err)
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, serializationErrorf("invalid json in %s: %v", filename, err)
		}
		if err := validateRecordShape(raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, serializationErrorf("invalid records in %s: %v", filename, err)
		}
	}

	return FromRecords(records, NullNode)
}

func isYAMLFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

func validateRecordShape(v interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(recordListSchema),
		gojsonschema.NewGoLoader(v),
	)
	if err != nil {
		return serializationErrorf("could not validate records: %v", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		details = append(details, resultError.String())
	}
	return serializationErrorf("records failed validation: %s", strings.Join(details, "; "))
}
