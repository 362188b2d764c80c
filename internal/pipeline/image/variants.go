package image

import (
	"bytes"
	"fmt"
	"image"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/disintegration/imaging"
)

// Fit names the resize behavior of a variant. Cover crops to fill the
// exact target box; inside shrinks to fit within it without upscaling,
// preserving aspect ratio.
type Fit string

const (
	FitCover  Fit = "cover"
	FitInside Fit = "inside"
)

// VariantSpec describes one derived rendition. All targets share a 16:9
// box so the gallery grid stays uniform.
type VariantSpec struct {
	Type    catalog.VariantType
	Width   int
	Height  int
	Fit     Fit
	Quality int
	Format  string
	Folder  string
}

// DefaultVariants is the rendition set generated for every image asset.
var DefaultVariants = []VariantSpec{
	{Type: catalog.VariantThumbnail, Width: 400, Height: 225, Fit: FitCover, Quality: 80, Format: "jpeg", Folder: blobstore.FolderThumbnails},
	{Type: catalog.VariantPreview, Width: 1200, Height: 675, Fit: FitInside, Quality: 85, Format: "jpeg", Folder: blobstore.FolderPreviews},
	{Type: catalog.VariantWebOptimized, Width: 1920, Height: 1080, Fit: FitInside, Quality: 85, Format: "webp", Folder: blobstore.FolderWeb},
	{Type: catalog.VariantMobile, Width: 800, Height: 450, Fit: FitCover, Quality: 80, Format: "jpeg", Folder: blobstore.FolderMobile},
}

// resize applies the spec's fit to the source image. Cover always yields
// exactly Width x Height; inside yields at most Width x Height and never
// enlarges a smaller source.
func resize(src image.Image, spec VariantSpec) image.Image {
	switch spec.Fit {
	case FitCover:
		return imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	default:
		return imaging.Fit(src, spec.Width, spec.Height, imaging.Lanczos)
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
