package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"styleforge/internal/tensor"
)

func writePNG(t *testing.T, w, h int, fill color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadShapeAndRange(t *testing.T) {
	path := writePNG(t, 20, 12, color.RGBA{R: 255, A: 255})
	got, err := Load(path, 16)
	require.NoError(t, err)
	require.Equal(t, 1, got.N)
	require.Equal(t, 3, got.C)
	require.Equal(t, 16, got.H)
	require.Equal(t, 16, got.W)
	for _, v := range got.Data {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
	// Solid red survives resizing.
	require.InDelta(t, 1.0, got.At(0, 0, 8, 8), 0.02)
	require.InDelta(t, 0.0, got.At(0, 1, 8, 8), 0.02)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"), 16)
	require.Error(t, err)
}

func TestLoadNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err := Load(path, 16)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	src := tensor.New(1, 3, 8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(0, 0, y, x, 0.2)
			src.Set(0, 1, y, x, 0.5)
			src.Set(0, 2, y, x, 0.8)
		}
	}
	path := filepath.Join(t.TempDir(), "out.png")
	before := src.Clone()
	require.NoError(t, Save(src, path))
	require.Equal(t, before.Data, src.Data, "save must not mutate the input")

	back, err := Load(path, 8)
	require.NoError(t, err)
	require.InDelta(t, 0.2, back.At(0, 0, 4, 4), 0.01)
	require.InDelta(t, 0.5, back.At(0, 1, 4, 4), 0.01)
	require.InDelta(t, 0.8, back.At(0, 2, 4, 4), 0.01)
}

func TestSaveRejectsWrongShape(t *testing.T) {
	require.Error(t, Save(tensor.New(1, 1, 4, 4), filepath.Join(t.TempDir(), "bad.jpg")))
}
