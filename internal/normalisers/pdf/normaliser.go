// Package pdf provides a Normaliser for PDF documents backed by the
// pdftotext tool from poppler.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	toolName = "pdftotext"

	// maxTitleLength bounds a first line that is accepted as the title.
	maxTitleLength = 200
)

var pdfMagic = []byte("%PDF-")

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext (part of poppler).
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text layer of a PDF.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(bytes.TrimLeft(raw.Content, "\x00\t\r\n "), pdfMagic) {
		return nil, fmt.Errorf("%w: %s is not a PDF", domain.ErrInvalidInput, raw.Filename)
	}

	tmp, err := os.CreateTemp("", "tripwise-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: pdftotext failed for %s: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	// pdftotext separates pages with form feeds.
	content := strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "\n\n"))

	doc := normalisers.NewDocument(raw, extractTitle(content, raw.Filename), content, "pdf")
	return &driven.NormaliseResult{Document: doc}, nil
}

// extractTitle uses the first non-empty short line, else the filename.
func extractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= maxTitleLength {
			continue
		}
		return line
	}
	return normalisers.TitleFromFilename(filepath.Base(filename))
}
