package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResizeCoverFillsExactBox(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
	}{
		{"landscape", 3000, 2000},
		{"portrait", 2000, 3000},
		{"square", 1000, 1000},
		{"smaller than target", 200, 100},
	}

	spec := VariantSpec{Width: 400, Height: 225, Fit: FitCover}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := resize(createTestImage(tt.srcW, tt.srcH), spec)
			bounds := out.Bounds()
			assert.Equal(t, 400, bounds.Dx())
			assert.Equal(t, 225, bounds.Dy())
		})
	}
}

func TestResizeInsidePreservesAspectAndNeverUpscales(t *testing.T) {
	spec := VariantSpec{Width: 1200, Height: 675, Fit: FitInside}

	// Larger source shrinks to fit within the box, keeping aspect ratio.
	out := resize(createTestImage(3000, 2000), spec)
	bounds := out.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 1200)
	assert.LessOrEqual(t, bounds.Dy(), 675)
	srcRatio := 3000.0 / 2000.0
	outRatio := float64(bounds.Dx()) / float64(bounds.Dy())
	assert.InDelta(t, srcRatio, outRatio, 0.01)

	// Smaller source passes through untouched.
	out = resize(createTestImage(600, 400), spec)
	bounds = out.Bounds()
	assert.Equal(t, 600, bounds.Dx())
	assert.Equal(t, 400, bounds.Dy())
}

func TestDefaultVariantsAreSixteenNine(t *testing.T) {
	assert.Len(t, DefaultVariants, 4)
	for _, spec := range DefaultVariants {
		assert.InDelta(t, 16.0/9.0, float64(spec.Width)/float64(spec.Height), 0.01, "variant %s", spec.Type)
	}
}
