package driven

import "context"

// TextExtractor pulls a text layer out of a binary document format.
type TextExtractor interface {
	// ExtractText returns the document's text.
	ExtractText(ctx context.Context, data []byte) (string, error)
}
