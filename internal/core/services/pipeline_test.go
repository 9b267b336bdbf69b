package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

func newTestPipeline(drive *mockDrive, model *mockModel) *ItemPipeline {
	var classifier *Classifier
	if model == nil {
		classifier = NewClassifier(nil, NewHeuristic(""), 0)
	} else {
		classifier = NewClassifier(model, NewHeuristic(""), 0)
	}
	return NewItemPipeline(
		NewContentExtractor(drive, nil),
		classifier,
		NewRouter(drive, DefaultRouterConfig()),
	)
}

func TestItemPipeline_Process(t *testing.T) {
	drive := newMockDrive()
	drive.downloads["f1"] = []byte("%PDF")
	drive.parents["f1"] = []string{"W"}
	p := newTestPipeline(drive, nil)

	outcome, err := p.Process(context.Background(), *file("f1", "invoice_march.pdf", domain.MimeTypePDF, "W"), testCatalog())

	require.NoError(t, err)
	assert.Equal(t, domain.RouteMoved, outcome.Action)
	assert.Equal(t, "Invoices", outcome.Label)
	assert.InDelta(t, 0.95, outcome.Confidence, 1e-9)
	assert.Equal(t, []string{"F1"}, drive.parents["f1"])
}

func TestItemPipeline_PassesCatalogToModel(t *testing.T) {
	drive := newMockDrive()
	drive.exports["d1|"+ExportMimeText] = []byte("GPA 3.9")
	drive.parents["d1"] = []string{"W"}
	model := &mockModel{outcome: domain.Succeeded(domain.ClassificationResult{Label: "Academics", Confidence: 0.9})}
	p := newTestPipeline(drive, model)

	outcome, err := p.Process(context.Background(), *file("d1", "Transcript", domain.MimeTypeGoogleDoc, "W"), testCatalog())

	require.NoError(t, err)
	assert.Equal(t, "Academics", outcome.Label)
	require.Len(t, model.inputs, 1)
	assert.Equal(t, []string{"Invoices", "Academics", "IDs", "Misc"}, model.inputs[0].AllowedLabels)
	assert.Equal(t, "Bills and receipts", model.inputs[0].Descriptions["Invoices"])
	assert.Equal(t, "GPA 3.9", model.inputs[0].Text)
}

func TestItemPipeline_ExtractError(t *testing.T) {
	drive := newMockDrive()
	drive.readErr = domain.ErrNotFound
	p := newTestPipeline(drive, nil)

	_, err := p.Process(context.Background(), *file("gone", "a.txt", "text/plain"), testCatalog())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, drive.moveCount())
}
