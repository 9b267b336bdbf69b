// Package file provides the label catalog stored in a local CSV or YAML file.
//
// CSV files carry a header row with at least the columns label and
// folder_id; description is optional. YAML files hold a top-level labels
// list with the same keys.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// Format is a catalog file encoding.
type Format string

const (
	// FormatCSV is a comma-separated file with a header row.
	FormatCSV Format = "csv"
	// FormatYAML is a YAML document with a labels list.
	FormatYAML Format = "yaml"
)

// CSV column names.
const (
	ColumnLabel       = "label"
	ColumnFolderID    = "folder_id"
	ColumnDescription = "description"
)

// Ensure Source implements the interface.
var _ driven.CatalogSource = (*Source)(nil)

// Source reads and writes the catalog file.
type Source struct {
	path   string
	format Format

	mu     sync.Mutex
	digest [sha256.Size]byte
}

type yamlCatalog struct {
	Labels []domain.CatalogEntry `yaml:"labels"`
}

// NewSource creates a source for path. The format follows the extension.
func NewSource(path string) (*Source, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, format: format}, nil
}

func formatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: catalog file %q (want .csv, .yaml or .yml)", domain.ErrUnsupportedType, path)
	}
}

// Location returns the file path.
func (s *Source) Location() string {
	return s.path
}

// Load reads every row in file order.
func (s *Source) Load(_ context.Context) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []domain.CatalogEntry
	switch s.format {
	case FormatCSV:
		entries, err = decodeCSV(bytes.NewReader(data))
	case FormatYAML:
		entries, err = decodeYAML(data)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.digest = sha256.Sum256(data)
	s.mu.Unlock()
	return entries, nil
}

// Save rewrites the file atomically.
func (s *Source) Save(_ context.Context, entries []domain.CatalogEntry) error {
	var (
		data []byte
		err  error
	)
	switch s.format {
	case FormatCSV:
		data, err = encodeCSV(entries)
	case FormatYAML:
		data, err = yaml.Marshal(yamlCatalog{Labels: entries})
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	s.mu.Lock()
	s.digest = sha256.Sum256(data)
	s.mu.Unlock()
	return nil
}

// Modified reports whether the file content differs from what was last
// loaded or saved. A missing file counts as modified.
func (s *Source) Modified() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return true
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	return sum != s.digest
}

func decodeCSV(r io.Reader) ([]domain.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrInvalidInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	for _, required := range []string{ColumnLabel, ColumnFolderID} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: csv header must include %q (got %v)", domain.ErrInvalidInput, required, header)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []domain.CatalogEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", domain.ErrInvalidInput, err)
		}
		entries = append(entries, domain.CatalogEntry{
			Label:         field(record, ColumnLabel),
			DestinationID: field(record, ColumnFolderID),
			Description:   field(record, ColumnDescription),
		})
	}
	return entries, nil
}

func encodeCSV(entries []domain.CatalogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{ColumnLabel, ColumnFolderID, ColumnDescription}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Label, e.DestinationID, e.Description}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func decodeYAML(data []byte) ([]domain.CatalogEntry, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", domain.ErrInvalidInput, err)
	}
	return doc.Labels, nil
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
