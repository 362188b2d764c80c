package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"

	"github.com/disintegration/imaging"
)

// encodeWebP encodes via the cwebp binary when present. Without it the
// variant degrades to JPEG at the same quality so the rendition set is
// always complete; the returned format and content type tell the caller
// which encoder won.
func encodeWebP(ctx context.Context, img image.Image, quality int, tempDir string) (data []byte, format, contentType string, err error) {
	if _, lookErr := exec.LookPath("cwebp"); lookErr != nil {
		data, err = encodeJPEG(img, quality)
		return data, "jpeg", "image/jpeg", err
	}

	data, err = encodeWithCwebp(ctx, img, quality, tempDir)
	if err != nil {
		return nil, "", "", err
	}
	return data, "webp", "image/webp", nil
}

func encodeWithCwebp(ctx context.Context, img image.Image, quality int, tempDir string) ([]byte, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	// cwebp reads PNG losslessly, so the intermediate adds no artifacts.
	var pngBuf bytes.Buffer
	if err := imaging.Encode(&pngBuf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode intermediate png: %w", err)
	}

	inputFile, err := os.CreateTemp(tempDir, "webp-input-*.png")
	if err != nil {
		return nil, fmt.Errorf("create input temp file: %w", err)
	}
	inputPath := inputFile.Name()
	defer func() { _ = os.Remove(inputPath) }()

	if _, err := inputFile.Write(pngBuf.Bytes()); err != nil {
		_ = inputFile.Close()
		return nil, fmt.Errorf("write input temp file: %w", err)
	}
	_ = inputFile.Close()

	outputFile, err := os.CreateTemp(tempDir, "webp-output-*.webp")
	if err != nil {
		return nil, fmt.Errorf("create output temp file: %w", err)
	}
	outputPath := outputFile.Name()
	_ = outputFile.Close()
	defer func() { _ = os.Remove(outputPath) }()

	cmd := exec.CommandContext(ctx, "cwebp",
		"-q", strconv.Itoa(quality),
		inputPath,
		"-o", outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cwebp failed: %w, stderr: %s", err, stderr.String())
	}

	return os.ReadFile(outputPath)
}
