package conversation

import "fmt"

// StructuralError reports an operation that would violate the shape of a
// conversation tree, such as attaching a node that already has a different
// parent or operating on a node that is not part of the tree.
type StructuralError struct {
	Op     string
	ID     NodeID
	Reason string
}

func (e *StructuralError) Error() string {
	if e.ID != NullNode {
		return fmt.Sprintf("%s: %s (node %s)", e.Op, e.Reason, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func structuralErrorf(op string, id NodeID, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Op: op, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// SerializationError reports a record list that cannot be rebuilt into a
// valid conversation tree, or a conversation file whose contents do not
// match the record shape.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("conversation serialization: %s", e.Reason)
}

func serializationErrorf(format string, args ...interface{}) *SerializationError {
	return &SerializationError{Reason: fmt.Sprintf(format, args...)}
}
