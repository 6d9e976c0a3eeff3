package migration

import (
	"path/filepath"
	"strconv"
)

// AssetPaths are the legacy files of one image row.
type AssetPaths struct {
	Original  string
	Thumbnail string
}

// Relocator derives legacy file paths: <base>/<category id>/<file name>.
type Relocator struct {
	OriginalsDir  string
	ThumbnailsDir string
}

// Paths returns the legacy original and thumbnail of an image. An empty
// thumbnail file name yields an empty thumbnail path.
func (r Relocator) Paths(catID uint, mediaFile, thumbFile string) AssetPaths {
	dir := strconv.FormatUint(uint64(catID), 10)
	paths := AssetPaths{
		Original: filepath.Join(r.OriginalsDir, dir, mediaFile),
	}
	if thumbFile != "" {
		paths.Thumbnail = filepath.Join(r.ThumbnailsDir, dir, thumbFile)
	}
	return paths
}
