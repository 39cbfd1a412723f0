package conversation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileAttachmentRefinesToImage(t *testing.T) {
	attachment := NewFileAttachment("diagram.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})

	image, ok := attachment.(*ImageAttachment)
	require.True(t, ok)
	require.Equal(t, AttachmentTypeImage, image.AttachmentType())
	require.Equal(t, "diagram.png", image.Name)
	require.Equal(t, "image/png", image.MimeType)
}

func TestFileAttachmentStaysFileForOtherMimeTypes(t *testing.T) {
	attachment := NewFileAttachment("notes.pdf", "application/pdf", []byte("%PDF-1.7"))

	_, ok := attachment.(*FileAttachment)
	require.True(t, ok)
	require.Equal(t, AttachmentTypeFile, attachment.AttachmentType())
}

func TestIsImageMimeType(t *testing.T) {
	require.True(t, IsImageMimeType("image/png"))
	require.True(t, IsImageMimeType("image/jpeg"))
	require.False(t, IsImageMimeType("application/pdf"))
	require.False(t, IsImageMimeType(""))
}

func TestParseLinkAttachment(t *testing.T) {
	link, err := ParseLinkAttachment("handbook", "https://example.com/handbook")
	require.NoError(t, err)
	require.Equal(t, AttachmentTypeLink, link.AttachmentType())
	require.Equal(t, "https://example.com/handbook", link.URL.String())

	_, err = ParseLinkAttachment("broken", ":missing-scheme")
	require.Error(t, err)
}

func TestLoadFileAttachmentSniffsMimeType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diagram.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0644))

	attachment, err := LoadFileAttachment(path)
	require.NoError(t, err)

	image, ok := attachment.(*ImageAttachment)
	require.True(t, ok)
	require.Equal(t, "diagram.png", image.Name)
	require.Equal(t, "image/png", image.MimeType)
}

func TestLoadFileAttachmentMissingFile(t *testing.T) {
	_, err := LoadFileAttachment(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}
