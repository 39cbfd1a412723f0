package provider

import (
	"fmt"

	"github.com/go-go-golems/grillo/pkg/conversation"
)

// BackendFailure wraps a transport or API error raised by a model
// backend. It unwraps to the underlying error, so context cancellation
// still matches through errors.Is even when the HTTP layer wrapped it.
type BackendFailure struct {
	Backend string
	Err     error
}

func NewBackendFailure(backend string, err error) *BackendFailure {
	return &BackendFailure{
		Backend: backend,
		Err:     err,
	}
}

func (e *BackendFailure) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendFailure) Unwrap() error {
	return e.Err
}

// UnsupportedAttachmentError reports an attachment kind a backend has no
// wire representation for, such as a link on a backend that only accepts
// inline images.
type UnsupportedAttachmentError struct {
	Backend    string
	Attachment conversation.Attachment
}

func NewUnsupportedAttachmentError(backend string, attachment conversation.Attachment) *UnsupportedAttachmentError {
	return &UnsupportedAttachmentError{
		Backend:    backend,
		Attachment: attachment,
	}
}

func (e *UnsupportedAttachmentError) Error() string {
	return fmt.Sprintf("backend %s does not support attachment %s", e.Backend, e.Attachment)
}
