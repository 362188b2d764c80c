package image

import (
	"image"
	"image/color"
)

// introspect derives technical metadata from a decoded image: the color
// model family, bit depth per channel, and whether an alpha channel is
// present.
func introspect(img image.Image, format string) (colorSpace string, bitDepth int32, hasAlpha bool) {
	switch img.ColorModel() {
	case color.GrayModel:
		return "gray", 8, false
	case color.Gray16Model:
		return "gray", 16, false
	case color.CMYKModel:
		return "cmyk", 8, false
	case color.YCbCrModel:
		return "ycbcr", 8, false
	case color.NYCbCrAModel:
		return "ycbcr", 8, true
	case color.RGBA64Model, color.NRGBA64Model:
		return "rgb", 16, true
	case color.RGBAModel, color.NRGBAModel:
		return "rgb", 8, formatSupportsAlpha(format)
	default:
		if _, ok := img.(*image.Paletted); ok {
			return "palette", 8, false
		}
		return "rgb", 8, false
	}
}

// formatSupportsAlpha filters out alpha reported by decoders that always
// produce RGBA pixels regardless of the source format.
func formatSupportsAlpha(format string) bool {
	switch format {
	case "png", "webp", "gif":
		return true
	default:
		return false
	}
}
