// Package imageio converts between raster image files and NCHW tensors.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/anthonynsimon/bild/transform"

	"styleforge/internal/tensor"
)

// Load decodes the image at path, resizes it to size x size and returns it
// as a [1,3,size,size] tensor with RGB values in [0,1].
func Load(path string, size int) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	resized := transform.Resize(img, size, size, transform.Linear)

	t := tensor.New(1, 3, size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			t.Set(0, 0, y, x, float64(r)/65535.0)
			t.Set(0, 1, y, x, float64(g)/65535.0)
			t.Set(0, 2, y, x, float64(b)/65535.0)
		}
	}
	return t, nil
}

// Save writes a [1,3,H,W] tensor with values in [0,1] as a raster image.
// The format follows the destination extension (PNG for .png, JPEG
// otherwise). The input tensor is not mutated.
func Save(t *tensor.Tensor, path string) error {
	if t.N != 1 || t.C != 3 {
		return fmt.Errorf("save expects a [1,3,H,W] tensor, got %s", t.ShapeString())
	}

	work := t.Clone()
	work.Clamp(0, 1)

	img := image.NewRGBA(image.Rect(0, 0, work.W, work.H))
	for y := 0; y < work.H; y++ {
		for x := 0; x < work.W; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(work.At(0, 0, y, x)*255 + 0.5),
				G: uint8(work.At(0, 1, y, x)*255 + 0.5),
				B: uint8(work.At(0, 2, y, x)*255 + 0.5),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".png") {
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return nil
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
