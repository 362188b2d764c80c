package document

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var ErrPdftoppmNotFound = errors.New("document: pdftoppm binary not found")

// Renderer rasterizes the first page of a PDF so the pipeline can be
// tested without poppler installed. RenderFirstPage writes a JPEG at
// outputBase + ".jpg".
type Renderer interface {
	RenderFirstPage(ctx context.Context, pdfPath, outputBase string) error
}

// Pdftoppm shells out to poppler's pdftoppm.
type Pdftoppm struct {
	path string
}

func NewPdftoppm(path string) (*Pdftoppm, error) {
	if path == "" {
		path = "pdftoppm"
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPdftoppmNotFound, err)
	}
	return &Pdftoppm{path: path}, nil
}

func (r *Pdftoppm) RenderFirstPage(ctx context.Context, pdfPath, outputBase string) error {
	cmd := exec.CommandContext(ctx, r.path,
		"-jpeg",
		"-jpegopt", fmt.Sprintf("quality=%d", jpegQuality),
		"-f", "1",
		"-l", "1",
		"-scale-to", strconv.Itoa(renderScale),
		"-singlefile",
		pdfPath,
		outputBase,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// A killed process reports "signal: killed"; surface the context
		// error instead so callers can classify the failure.
		if ctx.Err() != nil {
			return fmt.Errorf("pdftoppm: %w", ctx.Err())
		}
		if strings.Contains(string(output), "Incorrect password") || strings.Contains(string(output), "encrypted") {
			return ErrEncrypted
		}
		return fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output))
	}
	return nil
}
