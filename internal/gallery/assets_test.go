package gallery

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gallery-migrate/internal/errors"
)

func testAssetConfig(root string) AssetConfig {
	return AssetConfig{
		Root:         root,
		DetailWidth:  400,
		DetailHeight: 300,
		ThumbWidth:   100,
		ThumbHeight:  100,
		JPEGQuality:  80,
	}
}

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	img := imaging.New(width, height, color.NRGBA{R: 10, G: 200, B: 90, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestAssets_PlaceCopiesAndResizes(t *testing.T) {
	t.Parallel()
	legacyDir := t.TempDir()
	root := t.TempDir()
	a := NewAssets(testAssetConfig(root), discardLogger())

	original := filepath.Join(legacyDir, "media", "2", "heron.jpg")
	writeTestImage(t, original, 1600, 900)

	placed, err := a.Place(context.Background(), AssetRequest{
		CatPath:   "nature_1/birds_2",
		FileName:  "heron.jpg",
		Original:  original,
		Thumbnail: filepath.Join(legacyDir, "thumbnails", "2", "heron.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, OriginalsDir, "nature_1", "birds_2", "heron.jpg"), placed.Original)
	assert.FileExists(t, original, "originals are copied by default")

	w, h := imageSize(t, placed.Original)
	assert.Equal(t, []int{1600, 900}, []int{w, h})

	w, h = imageSize(t, placed.Detail)
	assert.Equal(t, 400, w, "detail fits the detail box")
	assert.Equal(t, 225, h)

	w, h = imageSize(t, placed.Thumbnail)
	assert.Equal(t, 100, w, "thumbnail is generated when the legacy one is missing")
	assert.Equal(t, 56, h)

	info, err := os.Stat(placed.Detail)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestAssets_PlaceUsesLegacyThumbnail(t *testing.T) {
	t.Parallel()
	legacyDir := t.TempDir()
	a := NewAssets(testAssetConfig(t.TempDir()), discardLogger())

	original := filepath.Join(legacyDir, "media", "1", "pic.png")
	thumb := filepath.Join(legacyDir, "thumbnails", "1", "pic.png")
	writeTestImage(t, original, 200, 200)
	writeTestImage(t, thumb, 33, 33)

	placed, err := a.Place(context.Background(), AssetRequest{CatPath: "a_1", FileName: "pic.png", Original: original, Thumbnail: thumb})
	require.NoError(t, err)

	w, h := imageSize(t, placed.Thumbnail)
	assert.Equal(t, []int{33, 33}, []int{w, h}, "legacy thumbnail is copied as is")

	w, h = imageSize(t, placed.Detail)
	assert.Equal(t, []int{200, 200}, []int{w, h}, "small originals are not enlarged")
}

func TestAssets_MoveOriginals(t *testing.T) {
	t.Parallel()
	legacyDir := t.TempDir()
	cfg := testAssetConfig(t.TempDir())
	cfg.MoveOriginals = true
	a := NewAssets(cfg, discardLogger())

	original := filepath.Join(legacyDir, "media", "1", "pic.jpg")
	writeTestImage(t, original, 50, 50)
	req := AssetRequest{CatPath: "a_1", FileName: "pic.jpg", Original: original}

	placed, err := a.Place(context.Background(), req)
	require.NoError(t, err)
	assert.NoFileExists(t, original)
	assert.FileExists(t, placed.Original)

	// A retry after a later failure finds the moved original in place.
	_, err = a.Place(context.Background(), req)
	require.NoError(t, err)
}

func TestAssets_MissingOriginalIsPlacementFailure(t *testing.T) {
	t.Parallel()
	a := NewAssets(testAssetConfig(t.TempDir()), discardLogger())

	_, err := a.Place(context.Background(), AssetRequest{
		CatPath:  "a_1",
		FileName: "gone.jpg",
		Original: filepath.Join(t.TempDir(), "gone.jpg"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAssetPlacement))
}

func TestAssets_UndecodableOriginal(t *testing.T) {
	t.Parallel()
	a := NewAssets(testAssetConfig(t.TempDir()), discardLogger())

	original := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(original, []byte("not a jpeg"), 0o600))

	_, err := a.Place(context.Background(), AssetRequest{CatPath: "a_1", FileName: "broken.jpg", Original: original})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcess))
}

func TestAssets_NonImageMedia(t *testing.T) {
	t.Parallel()
	legacyDir := t.TempDir()
	a := NewAssets(testAssetConfig(t.TempDir()), discardLogger())

	original := filepath.Join(legacyDir, "clip.mp4")
	require.NoError(t, os.WriteFile(original, []byte("video"), 0o600))

	_, err := a.Place(context.Background(), AssetRequest{CatPath: "a_1", FileName: "clip.mp4", Original: original})
	require.Error(t, err, "media without a legacy thumbnail cannot be placed")
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcess))

	thumb := filepath.Join(legacyDir, "clip.jpg")
	writeTestImage(t, thumb, 20, 20)
	placed, err := a.Place(context.Background(), AssetRequest{CatPath: "a_1", FileName: "clip.mp4", Original: original, Thumbnail: thumb})
	require.NoError(t, err)

	detail, err := os.ReadFile(placed.Detail)
	require.NoError(t, err)
	assert.Equal(t, "video", string(detail), "non-image media is copied as detail")
}

func TestAssets_InvalidFileName(t *testing.T) {
	t.Parallel()
	a := NewAssets(testAssetConfig(t.TempDir()), discardLogger())

	for _, name := range []string{"", "../escape.jpg", "sub/dir.jpg"} {
		_, err := a.Place(context.Background(), AssetRequest{CatPath: "a_1", FileName: name, Original: "/dev/null"})
		require.Error(t, err, name)
		assert.True(t, errors.IsCategory(err, errors.CategoryIntegrity), name)
	}
}

func TestAssets_Check(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "gallery")
	require.NoError(t, NewAssets(testAssetConfig(root), discardLogger()).Check(context.Background()))
	for _, dir := range layoutDirs {
		assert.DirExists(t, filepath.Join(root, dir))
	}

	cfg := testAssetConfig(root)
	cfg.MinFreeBytes = 1 << 62
	err := NewAssets(cfg, discardLogger()).Check(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySystem))
	assert.Contains(t, err.Error(), "insufficient disk space")
}

func TestAssets_PrepareCategory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	a := NewAssets(testAssetConfig(root), discardLogger())

	require.NoError(t, a.PrepareCategory(context.Background(), "nature_1/birds_2"))
	for _, dir := range layoutDirs {
		assert.DirExists(t, filepath.Join(root, dir, "nature_1", "birds_2"))
	}
}
