package fs

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

func TestStoreWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "snapshots")
	store := NewStore(dir, 64)
	capturedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ref, err := store.Write(ctx, image.NewRGBA(image.Rect(0, 0, 256, 128)), ports.SnapshotMeta{
		TabID:      "tab-1",
		URL:        "https://go.dev",
		Title:      "Go",
		CapturedAt: capturedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "tab-1.png", ref)

	meta, err := store.ReadMeta(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", meta.URL)
	assert.True(t, meta.CapturedAt.Equal(capturedAt))

	img, err := store.ReadImage(ref)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	require.NoError(t, store.Delete(ctx, ref))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Delete(ctx, ref))
}

func TestStoreRejectsPathRefs(t *testing.T) {
	store := NewStore(t.TempDir(), 0)

	for _, ref := range []string{"../escape.png", "nested/tab.png", "tab.jpg", ".png"} {
		err := store.Delete(context.Background(), ref)
		assert.ErrorIs(t, err, ErrInvalidRef, ref)
	}

	_, err := store.Write(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), ports.SnapshotMeta{TabID: "../x"})
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestResizeKeepsSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, src, resizeToMaxWidth(src, 512))
}

func TestDefaultDirUsesXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "ryxsurf", "snapshots"), dir)
}
