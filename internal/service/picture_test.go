package service

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPictureStore_SaveResizesToWebP(t *testing.T) {
	store := &PictureStore{dir: t.TempDir(), maxBytes: 1 << 20}

	url, err := store.Save("bob", testutil.PNG(t, 1024, 512))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(store.dir, filepath.FromSlash(url[len(PictureURLPrefix):])))
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 256, cfg.Height)
}

func TestPictureStore_Rejects(t *testing.T) {
	store := &PictureStore{dir: t.TempDir(), maxBytes: 16}

	_, err := store.Save("bob", nil)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = store.Save("bob", testutil.PNG(t, 8, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File too large")

	store.maxBytes = 1 << 20
	_, err = store.Save("bob", []byte("GIF89a but not really"))
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestPictureStore_RemoveIgnoresForeignPaths(t *testing.T) {
	dir := t.TempDir()
	store := &PictureStore{dir: dir, maxBytes: 1 << 20}
	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	store.Remove("/uploads/../keep.txt")
	store.Remove("/uploads/pictures/../../keep.txt")
	store.Remove("https://example.com/pictures/x.webp")
	var nilStore *PictureStore
	nilStore.Remove("/uploads/pictures/x.webp")

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestResizeToFit(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Equal(t, small, resizeToFit(small, 512, 512))

	tall := resizeToFit(image.NewRGBA(image.Rect(0, 0, 300, 1200)), 512, 512)
	assert.Equal(t, 128, tall.Bounds().Dx())
	assert.Equal(t, 512, tall.Bounds().Dy())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "alice-smith", slugify("  Alice Smith! "))
	assert.Equal(t, "picture", slugify("!!!"))
}
