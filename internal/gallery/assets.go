package gallery

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
)

// Directories below the asset root. Each holds one subdirectory per catpath.
const (
	OriginalsDir  = "originals"
	DetailsDir    = "details"
	ThumbnailsDir = "thumbnails"
)

var layoutDirs = []string{OriginalsDir, DetailsDir, ThumbnailsDir}

// AssetConfig configures asset placement.
type AssetConfig struct {
	Root          string
	DetailWidth   int
	DetailHeight  int
	ThumbWidth    int
	ThumbHeight   int
	JPEGQuality   int
	MoveOriginals bool
	MinFreeBytes  uint64
}

// AssetRequest describes the files of one image row.
type AssetRequest struct {
	CatPath   string // target category path
	FileName  string // target file name
	Original  string // legacy original file
	Thumbnail string // legacy thumbnail file, may not exist
}

// PlacedAsset holds the paths written for one image.
type PlacedAsset struct {
	FileName  string
	Original  string
	Detail    string
	Thumbnail string
}

// Assets places image files into the gallery layout: the original, a detail
// image fitted into the detail box and a thumbnail.
type Assets struct {
	cfg AssetConfig
	log logger.Logger
}

// NewAssets returns Assets for cfg.
func NewAssets(cfg AssetConfig, log logger.Logger) *Assets {
	return &Assets{cfg: cfg, log: log.Module("assets")}
}

// Check creates the layout directories and verifies free disk space.
func (a *Assets) Check(ctx context.Context) error {
	for _, dir := range layoutDirs {
		path := filepath.Join(a.cfg.Root, dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return errors.New(fmt.Errorf("cannot create asset directory: %w", err)).
				Component("assets").
				Category(errors.CategoryConfiguration).
				FileContext(path).
				Build()
		}
	}

	if a.cfg.MinFreeBytes == 0 {
		return nil
	}

	usage, err := disk.UsageWithContext(ctx, a.cfg.Root)
	if err != nil {
		return errors.New(fmt.Errorf("failed to check disk space on %s: %w", a.cfg.Root, err)).
			Component("assets").
			Category(errors.CategorySystem).
			Build()
	}
	if usage.Free < a.cfg.MinFreeBytes {
		return errors.Newf("insufficient disk space on %s: %d bytes free, need at least %d bytes",
			a.cfg.Root, usage.Free, a.cfg.MinFreeBytes).
			Component("assets").
			Category(errors.CategorySystem).
			Context("free_bytes", usage.Free).
			Build()
	}
	return nil
}

// PrepareCategory creates the directories of a category.
func (a *Assets) PrepareCategory(_ context.Context, catPath string) error {
	for _, dir := range layoutDirs {
		path := filepath.Join(a.cfg.Root, dir, filepath.FromSlash(catPath))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return assetError(fmt.Errorf("cannot create category directory: %w", err), "prepare_category", path)
		}
	}
	return nil
}

// Place copies (or moves) the original into the gallery, writes the detail
// image and the thumbnail. Placing the same request again overwrites the
// previous result, and a moved original found at its destination is reused.
func (a *Assets) Place(ctx context.Context, req AssetRequest) (PlacedAsset, error) {
	if req.FileName == "" || filepath.Base(req.FileName) != req.FileName {
		return PlacedAsset{}, errors.Newf("invalid image file name %q", req.FileName).
			Component("assets").
			Category(errors.CategoryIntegrity).
			Build()
	}

	catDir := filepath.FromSlash(req.CatPath)
	placed := PlacedAsset{
		FileName:  req.FileName,
		Original:  filepath.Join(a.cfg.Root, OriginalsDir, catDir, req.FileName),
		Detail:    filepath.Join(a.cfg.Root, DetailsDir, catDir, req.FileName),
		Thumbnail: filepath.Join(a.cfg.Root, ThumbnailsDir, catDir, req.FileName),
	}

	if err := a.PrepareCategory(ctx, req.CatPath); err != nil {
		return PlacedAsset{}, err
	}

	if err := a.placeOriginal(req.Original, placed.Original); err != nil {
		return PlacedAsset{}, err
	}
	if err := ctx.Err(); err != nil {
		return PlacedAsset{}, err
	}

	var src image.Image
	if _, err := imaging.FormatFromFilename(req.FileName); err == nil {
		img, err := imaging.Open(placed.Original, imaging.AutoOrientation(true))
		if err != nil {
			return PlacedAsset{}, errors.New(fmt.Errorf("cannot decode original: %w", err)).
				Component("assets").
				Category(errors.CategoryImageProcess).
				FileContext(placed.Original).
				Build()
		}
		src = img
	}

	if err := a.writeDetail(src, placed); err != nil {
		return PlacedAsset{}, err
	}
	if err := a.writeThumbnail(src, req.Thumbnail, placed); err != nil {
		return PlacedAsset{}, err
	}

	a.log.Trace("image placed",
		logger.String("catpath", req.CatPath),
		logger.String("file", req.FileName))
	return placed, nil
}

func (a *Assets) placeOriginal(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, dstErr := os.Stat(dst); dstErr == nil {
				return nil
			}
		}
		return assetError(fmt.Errorf("legacy original unavailable: %w", err), "place_original", src)
	}

	if a.cfg.MoveOriginals {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		// Rename fails across filesystems; fall back to copy and remove.
		if err := copyFile(src, dst); err != nil {
			return assetError(err, "move_original", src)
		}
		if err := os.Remove(src); err != nil {
			return assetError(err, "move_original", src)
		}
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return assetError(err, "copy_original", src)
	}
	return nil
}

// writeDetail fits the original into the detail box. Originals smaller than
// the box are not enlarged. Media that is not an image is copied as is.
func (a *Assets) writeDetail(src image.Image, placed PlacedAsset) error {
	if src == nil {
		if err := copyFile(placed.Original, placed.Detail); err != nil {
			return assetError(err, "copy_detail", placed.Detail)
		}
		return nil
	}

	detail := imaging.Fit(src, a.cfg.DetailWidth, a.cfg.DetailHeight, imaging.Lanczos)
	if err := a.saveImage(detail, placed.Detail); err != nil {
		return assetError(err, "write_detail", placed.Detail)
	}
	return nil
}

// writeThumbnail copies the legacy thumbnail when present, otherwise it is
// generated from the original.
func (a *Assets) writeThumbnail(src image.Image, legacyThumb string, placed PlacedAsset) error {
	if legacyThumb != "" {
		if info, err := os.Stat(legacyThumb); err == nil && info.Mode().IsRegular() {
			if err := copyFile(legacyThumb, placed.Thumbnail); err != nil {
				return assetError(err, "copy_thumbnail", legacyThumb)
			}
			return nil
		}
	}

	if src == nil {
		return errors.Newf("no legacy thumbnail and %s is not an image", placed.FileName).
			Component("assets").
			Category(errors.CategoryImageProcess).
			FileContext(placed.Original).
			Build()
	}

	thumb := imaging.Fit(src, a.cfg.ThumbWidth, a.cfg.ThumbHeight, imaging.Lanczos)
	if err := a.saveImage(thumb, placed.Thumbnail); err != nil {
		return assetError(err, "write_thumbnail", placed.Thumbnail)
	}
	return nil
}

// saveImage encodes img to a temporary file next to dst and renames it into place.
func (a *Assets) saveImage(img image.Image, dst string) error {
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return err
	}

	return writeAtomic(dst, func(w io.Writer) error {
		return imaging.Encode(w, img, format, imaging.JPEGQuality(a.cfg.JPEGQuality))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	return writeAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func writeAtomic(dst string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func assetError(err error, operation, path string) error {
	return errors.New(err).
		Component("assets").
		Category(errors.CategoryAssetPlacement).
		Context("operation", operation).
		FileContext(path).
		Build()
}
