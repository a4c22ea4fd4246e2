package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
)

// ErrNoText is returned by PlainText for HTML documents without any text
var ErrNoText = errors.New("html document contains no text")

// Supported content types
const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
)

// Doc is a content item submitted for enhancement
type Doc struct {
	ID          string
	Content     string
	ContentType string
	Language    string
}

// Validate checks if the document has required fields
func (d *Doc) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: doc content is required", internalerr.ErrInvalidInput)
	}

	switch d.MediaType() {
	case ContentTypePlain, ContentTypeHTML:
	default:
		return fmt.Errorf("%w: unsupported content type %q", internalerr.ErrInvalidInput, d.ContentType)
	}

	return nil
}

// MediaType returns the content type without parameters, defaulting to text/plain.
func (d *Doc) MediaType() string {
	ct := d.ContentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return ContentTypePlain
	}
	return ct
}

// PlainText returns the text to analyse, extracting it from HTML when needed.
func (d *Doc) PlainText() (string, error) {
	if d.MediaType() != ContentTypeHTML {
		return d.Content, nil
	}
	text, err := ExtractText(strings.NewReader(d.Content))
	if err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
