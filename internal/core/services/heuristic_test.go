package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

func TestHeuristic_Classify(t *testing.T) {
	h := NewHeuristic("")
	allowed := []string{"Invoices", "Academics", "IDs", "Tax Docs", "Misc"}

	tests := []struct {
		name       string
		filename   string
		text       string
		allowed    []string
		wantLabel  string
		wantConf   float64
		wantSource domain.ClassificationSource
	}{
		{"filename keyword", "invoice_march.pdf", "", allowed, "Invoices", HeuristicMatchConfidence, domain.SourceHeuristic},
		{"body keyword", "scan.pdf", "Official Transcript of Records", allowed, "Academics", HeuristicMatchConfidence, domain.SourceHeuristic},
		{"multi word pattern", "scan.jpg", "Driver's License, State of Ohio", allowed, "IDs", HeuristicMatchConfidence, domain.SourceHeuristic},
		{"first rule wins", "tax-invoice.pdf", "", allowed, "Invoices", HeuristicMatchConfidence, domain.SourceHeuristic},
		{"rule skipped when label not allowed", "w2-2024.pdf", "", []string{"Invoices", "Misc"}, "Misc", HeuristicFallbackConfidence, domain.SourceHeuristic},
		{"no match uses catch-all", "random.bin", "", allowed, "Misc", HeuristicFallbackConfidence, domain.SourceHeuristic},
		{"no catch-all uses first label", "random.bin", "", []string{"Work", "Photos"}, "Work", HeuristicFallbackConfidence, domain.SourceHeuristic},
		{"keyword inside word does not match", "billboard.txt", "", allowed, "Misc", HeuristicFallbackConfidence, domain.SourceHeuristic},
		{"no labels", "invoice.pdf", "", nil, "", 0, domain.SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Classify(tt.filename, tt.text, tt.allowed)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.NotEmpty(t, got.Rationale)
		})
	}
}

func TestHeuristic_CustomRules(t *testing.T) {
	h := NewHeuristicWithRules([]KeywordRule{
		{Pattern: regexp.MustCompile(`\bcontract\b`), Label: "Legal"},
	}, "Other")

	assert.Equal(t, "Other", h.CatchAll())
	assert.Equal(t, "Legal", h.Classify("Contract-v2.docx", "", []string{"Legal", "Other"}).Label)
	assert.Equal(t, "Other", h.Classify("notes.txt", "", []string{"Legal", "Other"}).Label)
}

func TestFoldForMatching(t *testing.T) {
	assert.Equal(t, "invoice march pdf", foldForMatching("Invoice_March.pdf"))
	assert.Equal(t, "a b\nc", foldForMatching("A--B\nC"))
	assert.Equal(t, " x ", foldForMatching("__x__"))
}
