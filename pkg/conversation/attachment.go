package conversation

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// AttachmentType discriminates the attachment variants carried by a message.
type AttachmentType string

const (
	AttachmentTypeFile  AttachmentType = "file"
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeLink  AttachmentType = "link"
)

// Attachment is auxiliary content carried by a message: a binary file, an
// image (a file whose mime type identifies an image) or an external link.
// The set of variants is closed. Backends switch on the concrete type when
// mapping attachments onto their wire format.
type Attachment interface {
	AttachmentType() AttachmentType
	String() string

	isAttachment()
}

// FileAttachment carries named binary content together with its mime type.
type FileAttachment struct {
	Name     string
	MimeType string
	Content  []byte
}

var _ Attachment = (*FileAttachment)(nil)

func (f *FileAttachment) AttachmentType() AttachmentType {
	return AttachmentTypeFile
}

func (f *FileAttachment) String() string {
	return fmt.Sprintf("FileAttachment{Name: %s, MimeType: %s, Size: %d}", f.Name, f.MimeType, len(f.Content))
}

func (f *FileAttachment) isAttachment() {}

// ImageAttachment is a FileAttachment whose mime type identifies an image.
// NewFileAttachment returns this variant whenever IsImageMimeType matches,
// so backends with image support can pick images out with a type switch.
type ImageAttachment struct {
	FileAttachment
}

var _ Attachment = (*ImageAttachment)(nil)

func (i *ImageAttachment) AttachmentType() AttachmentType {
	return AttachmentTypeImage
}

func (i *ImageAttachment) String() string {
	return fmt.Sprintf("ImageAttachment{Name: %s, MimeType: %s, Size: %d}", i.Name, i.MimeType, len(i.Content))
}

// LinkAttachment points at external content by URL instead of carrying bytes.
type LinkAttachment struct {
	Name string
	URL  *url.URL
}

var _ Attachment = (*LinkAttachment)(nil)

func (l *LinkAttachment) AttachmentType() AttachmentType {
	return AttachmentTypeLink
}

func (l *LinkAttachment) String() string {
	return fmt.Sprintf("LinkAttachment{Name: %s, URL: %s}", l.Name, l.URL)
}

func (l *LinkAttachment) isAttachment() {}

// IsImageMimeType reports whether mimeType denotes an image ("image/...").
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// NewFileAttachment builds a file attachment. When the mime type identifies
// an image the returned attachment is an *ImageAttachment.
func NewFileAttachment(name string, mimeType string, content []byte) Attachment {
	f := FileAttachment{
		Name:     name,
		MimeType: mimeType,
		Content:  content,
	}
	if IsImageMimeType(mimeType) {
		return &ImageAttachment{FileAttachment: f}
	}
	return &f
}

// NewLinkAttachment builds a link attachment from an already parsed URL.
func NewLinkAttachment(name string, u *url.URL) *LinkAttachment {
	return &LinkAttachment{Name: name, URL: u}
}

// ParseLinkAttachment builds a link attachment from a raw URL string.
func ParseLinkAttachment(name string, rawURL string) (*LinkAttachment, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse link attachment url %s", rawURL)
	}
	return NewLinkAttachment(name, u), nil
}

// LoadFileAttachment reads a file from disk and builds the attachment for
// it, sniffing the mime type from the extension and falling back to the
// content. Images come back as *ImageAttachment.
func LoadFileAttachment(path string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read attachment file %s", path)
	}
	if len(content) > 20*1024*1024 {
		return nil, errors.Errorf("attachment %s exceeds the 20MB limit", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}

	return NewFileAttachment(filepath.Base(path), mimeType, content), nil
}
