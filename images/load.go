package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
)

// Load reads and decodes the image at path.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes raw image bytes. The format is sniffed from magic bytes
// so a mislabeled extension still decodes.
func Decode(data []byte) (image.Image, error) {
	switch Sniff(data) {
	case FormatWebP:
		return webp.Decode(bytes.NewReader(data))
	case FormatBMP:
		return bmp.Decode(bytes.NewReader(data))
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}

// LoadOriented reads the image at path applying EXIF orientation, which
// matters for photos going to a display surface or a rendered preview.
// WebP carries no orientation tag and decodes directly.
func LoadOriented(path string) (image.Image, error) {
	if FormatForPath(path) == FormatWebP {
		return Load(path)
	}
	return imaging.Open(path, imaging.AutoOrientation(true))
}

// OrientedDimensions returns the pixel width and height after EXIF
// orientation is applied, matching what LoadOriented decodes. Anything
// normalizing coordinates against image size wants these, not the raw
// stored dimensions, or portrait photos come out transposed.
func OrientedDimensions(path string) (int, int, error) {
	img, err := LoadOriented(path)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Dimensions returns the pixel width and height of the image at path
// without decoding the full frame.
func Dimensions(path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	var cfg image.Config
	switch Sniff(data) {
	case FormatWebP:
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	case FormatBMP:
		cfg, err = bmp.DecodeConfig(bytes.NewReader(data))
	default:
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read dimensions of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
