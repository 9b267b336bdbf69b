package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewSource_Format(t *testing.T) {
	for name, want := range map[string]Format{
		"folders.csv": FormatCSV,
		"labels.YAML": FormatYAML,
		"labels.yml":  FormatYAML,
	} {
		s, err := NewSource(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, s.format)
	}

	_, err := NewSource("folders.json")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSource_LoadCSV(t *testing.T) {
	path := writeFile(t, "folders.csv", "\ufeffLabel, folder_id ,description\n"+
		"Invoices,F1,Bills and receipts\n"+
		"Academics,,\n"+
		"Misc,F9\n")
	s, err := NewSource(path)
	require.NoError(t, err)

	entries, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogEntry{
		{Label: "Invoices", DestinationID: "F1", Description: "Bills and receipts"},
		{Label: "Academics"},
		{Label: "Misc", DestinationID: "F9"},
	}, entries)
	assert.Equal(t, path, s.Location())
}

func TestSource_LoadCSV_BadHeader(t *testing.T) {
	path := writeFile(t, "folders.csv", "name,id\nInvoices,F1\n")
	s, err := NewSource(path)
	require.NoError(t, err)

	_, err = s.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "label")
}

func TestSource_LoadCSV_Empty(t *testing.T) {
	s, err := NewSource(writeFile(t, "folders.csv", ""))
	require.NoError(t, err)

	entries, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSource_LoadYAML(t *testing.T) {
	path := writeFile(t, "labels.yaml", `labels:
  - label: Invoices
    folder_id: F1
    description: Bills
  - label: Misc
`)
	s, err := NewSource(path)
	require.NoError(t, err)

	entries, err := s.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogEntry{
		{Label: "Invoices", DestinationID: "F1", Description: "Bills"},
		{Label: "Misc"},
	}, entries)
}

func TestSource_LoadYAML_Invalid(t *testing.T) {
	s, err := NewSource(writeFile(t, "labels.yml", "labels: [unterminated"))
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_LoadMissingFile(t *testing.T) {
	s, err := NewSource(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_SaveRoundTrip(t *testing.T) {
	entries := []domain.CatalogEntry{
		{Label: "Offers & Letters", DestinationID: "F5", Description: "Offer letters, HR mail"},
		{Label: "Misc", DestinationID: "F9"},
	}

	for _, name := range []string{"folders.csv", "labels.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			s, err := NewSource(path)
			require.NoError(t, err)

			require.NoError(t, s.Save(context.Background(), entries))
			assert.False(t, s.Modified(), "own save is not a modification")

			got, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, entries, got)
		})
	}
}

func TestSource_SaveCSVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folders.csv")
	s, err := NewSource(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), []domain.CatalogEntry{{Label: "Misc", DestinationID: "F9"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "label,folder_id,description\nMisc,F9,\n", string(data))
}

func TestSource_Modified(t *testing.T) {
	path := writeFile(t, "folders.csv", "label,folder_id\nMisc,F9\n")
	s, err := NewSource(path)
	require.NoError(t, err)

	assert.True(t, s.Modified(), "never loaded")
	_, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Modified())

	require.NoError(t, os.WriteFile(path, []byte("label,folder_id\nMisc,F9\nWork,\n"), 0644))
	assert.True(t, s.Modified())
}
