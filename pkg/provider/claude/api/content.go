package api

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

type Content interface {
	Type() ContentType
}

type BaseContent struct {
	Type_ ContentType `json:"type"`
}

type TextContent struct {
	BaseContent
	Text string `json:"text"`
}

func (t TextContent) Type() ContentType {
	return ContentTypeText
}

type ImageContent struct {
	BaseContent
	Source ImageSource `json:"source"`
}

func (i ImageContent) Type() ContentType {
	return ContentTypeImage
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func NewTextContent(text string) Content {
	return TextContent{
		BaseContent: BaseContent{Type_: ContentTypeText},
		Text:        text,
	}
}

func NewImageContent(mediaType, base64Data string) Content {
	return ImageContent{
		BaseContent: BaseContent{Type_: ContentTypeImage},
		Source: ImageSource{
			Type:      "base64",
			MediaType: mediaType,
			Data:      base64Data,
		},
	}
}

// decodeContentBlocks parses a polymorphic content array, switching on the
// "type" discriminator of each block.
func decodeContentBlocks(raw []json.RawMessage) ([]Content, error) {
	content := make([]Content, 0, len(raw))
	for _, block := range raw {
		var base BaseContent
		if err := json.Unmarshal(block, &base); err != nil {
			return nil, err
		}
		switch base.Type_ {
		case ContentTypeText:
			var text TextContent
			if err := json.Unmarshal(block, &text); err != nil {
				return nil, err
			}
			content = append(content, text)
		case ContentTypeImage:
			var image ImageContent
			if err := json.Unmarshal(block, &image); err != nil {
				return nil, err
			}
			content = append(content, image)
		default:
			return nil, errors.Errorf("unknown content type %s", base.Type_)
		}
	}
	return content, nil
}
