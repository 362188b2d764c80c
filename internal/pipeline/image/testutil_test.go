package image

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
)

// createTestImage creates a test image with a gradient pattern.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(255 * x / width)
			g := uint8(255 * y / height)
			img.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}

	return img
}

// createTestJPEG encodes a gradient JPEG of the given size.
func createTestJPEG(width, height int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, createTestImage(width, height), &jpeg.Options{Quality: 85})
	return buf.Bytes()
}

// createCorruptedJPEG returns a truncated JPEG (valid header, incomplete data).
func createCorruptedJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
}
