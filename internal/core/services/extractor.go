package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Export formats for provider-native files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// ContentExtractor turns a remote item into text or raw bytes.
type ContentExtractor struct {
	reader driven.ContentReader
	pdf    driven.TextExtractor
}

// NewContentExtractor creates an extractor. pdf may be nil, in which case
// PDFs yield no text.
func NewContentExtractor(reader driven.ContentReader, pdf driven.TextExtractor) *ContentExtractor {
	return &ContentExtractor{reader: reader, pdf: pdf}
}

// Extract reads item content according to its MIME type:
//   - native documents export as text/plain, spreadsheets as text/csv
//   - PDFs download and go through the text extractor; extraction failures
//     produce empty text, not an error
//   - other text/* types download and decode
//   - everything else downloads as binary
//
// Only remote read failures are returned.
func (e *ContentExtractor) Extract(ctx context.Context, item domain.ItemMeta) (domain.Content, error) {
	var content domain.Content

	switch {
	case item.MimeType == domain.MimeTypeGoogleDoc:
		data, err := e.reader.Export(ctx, item.ID, ExportMimeText)
		if err != nil {
			return content, fmt.Errorf("export document: %w", err)
		}
		content.Text = decodeText(data)

	case item.MimeType == domain.MimeTypeGoogleSheet:
		data, err := e.reader.Export(ctx, item.ID, ExportMimeCSV)
		if err != nil {
			return content, fmt.Errorf("export spreadsheet: %w", err)
		}
		content.Text = decodeText(data)

	case item.MimeType == domain.MimeTypePDF:
		data, err := e.reader.Download(ctx, item.ID)
		if err != nil {
			return content, fmt.Errorf("download pdf: %w", err)
		}
		content.Raw = data
		content.Text = e.pdfText(ctx, item, data)

	case strings.HasPrefix(item.MimeType, "text/"):
		data, err := e.reader.Download(ctx, item.ID)
		if err != nil {
			return content, fmt.Errorf("download text: %w", err)
		}
		content.Raw = data
		content.Text = decodeText(data)

	default:
		data, err := e.reader.Download(ctx, item.ID)
		if err != nil {
			return content, fmt.Errorf("download binary: %w", err)
		}
		content.Raw = data
		content.IsBinary = true
	}

	switch {
	case content.Text != "":
		logger.Debug("[TEXT] %s: %d chars", item.Name, len(content.Text))
	case content.IsBinary:
		logger.Debug("[BINARY] %s: %d bytes", item.Name, len(content.Raw))
	}
	return content, nil
}

func (e *ContentExtractor) pdfText(ctx context.Context, item domain.ItemMeta, data []byte) string {
	if e.pdf == nil {
		return ""
	}
	text, err := e.pdf.ExtractText(ctx, data)
	if err != nil {
		logger.Warn("[PDF] extraction failed for %s: %v", item.Name, err)
		return ""
	}
	return text
}

// decodeText decodes UTF-8 permissively: a leading BOM is dropped and
// invalid byte sequences become U+FFFD.
func decodeText(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}
