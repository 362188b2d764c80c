package blobstore

import (
	"path"
	"strings"
)

// Variant folder segments. Other parts of the system predict variant
// locations from these without a database lookup, so the scheme must
// stay stable.
const (
	FolderThumbnails = "thumbnails"
	FolderPreviews   = "previews"
	FolderWeb        = "web"
	FolderMobile     = "mobile"
)

// VariantKey derives the storage key for a variant of the given
// original: the original's directory, a variant folder segment, and the
// original's base name with the extension swapped for the variant's
// output format.
//
//	VariantKey("orig/a1.png", FolderThumbnails, "jpg") == "orig/thumbnails/a1.jpg"
func VariantKey(originalKey, folder, ext string) string {
	dir := path.Dir(originalKey)
	base := path.Base(originalKey)
	stem := strings.TrimSuffix(base, path.Ext(base))
	name := stem + "." + ext
	if dir == "." || dir == "/" {
		return path.Join(folder, name)
	}
	return path.Join(dir, folder, name)
}
