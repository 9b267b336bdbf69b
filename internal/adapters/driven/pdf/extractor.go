// Package pdf extracts the text layer of PDF documents using poppler's
// pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ToolName is the external binary used for extraction.
const ToolName = "pdftotext"

// ErrPDFToolNotFound indicates pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor implements driven.TextExtractor for PDFs.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates an extractor that shells out to pdftotext.
func New() *Extractor {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner, lookPath: exec.LookPath}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(ToolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns a platform hint for installing pdftotext.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "pdftotext is part of poppler: brew install poppler"
	case "windows":
		return "pdftotext is part of poppler: install Xpdf tools or poppler for Windows and add it to PATH"
	default:
		return "pdftotext is part of poppler: apt install poppler-utils (or your distribution's poppler package)"
	}
}

// ExtractText writes data to a temp file and returns pdftotext's output.
// A PDF without a text layer yields an empty string and no error.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf", domain.ErrInvalidInput)
	}
	if _, err := e.lookPath(ToolName); err != nil {
		return "", ErrPDFToolNotFound
	}

	tmp, err := os.CreateTemp("", "driveroute-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, ToolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}
