package images

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return img
}

func TestSniff(t *testing.T) {
	var jpegBuf, pngBuf, gifBuf, bmpBuf, webpBuf bytes.Buffer
	img := testImage(16, 16)
	require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))
	require.NoError(t, png.Encode(&pngBuf, img))
	require.NoError(t, gif.Encode(&gifBuf, img, nil))
	require.NoError(t, bmp.Encode(&bmpBuf, img))
	require.NoError(t, webp.Encode(&webpBuf, img, &webp.Options{Lossless: true}))

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "jpeg", data: jpegBuf.Bytes(), want: FormatJPEG},
		{name: "png", data: pngBuf.Bytes(), want: FormatPNG},
		{name: "gif", data: gifBuf.Bytes(), want: FormatGIF},
		{name: "bmp", data: bmpBuf.Bytes(), want: FormatBMP},
		{name: "webp", data: webpBuf.Bytes(), want: FormatWebP},
		{name: "garbage", data: []byte("not an image"), want: FormatUnknown},
		{name: "empty", data: nil, want: FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestDecodeAllFormats(t *testing.T) {
	img := testImage(20, 10)

	encoders := map[string]func(*bytes.Buffer) error{
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, img, nil) },
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"gif":  func(b *bytes.Buffer) error { return gif.Encode(b, img, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
		"webp": func(b *bytes.Buffer) error { return webp.Encode(b, img, &webp.Options{Lossless: true}) },
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encode(&buf))

			decoded, err := Decode(buf.Bytes())
			require.NoError(t, err, "decoding %s should succeed", name)
			assert.Equal(t, 20, decoded.Bounds().Dx())
			assert.Equal(t, 10, decoded.Bounds().Dy())
		})
	}

	_, err := Decode([]byte("definitely not pixels"))
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.jpg"))
	assert.True(t, IsImageFile("b.JPEG"))
	assert.True(t, IsImageFile("/some/dir/c.webp"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.False(t, IsImageFile("archive.tar.gz"))
	assert.False(t, IsImageFile("noext"))
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.jpg", "a.png", "c.webp", "skip.txt", ".hidden.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	paths, err := List(dir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.webp"),
	}
	assert.Equal(t, want, paths, "listing should be sorted and filtered")

	_, err = List(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(123, 45)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	w, h, err := Dimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 123, w)
	assert.Equal(t, 45, h)

	// No orientation metadata in a PNG: both reads agree.
	w, h, err = OrientedDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 123, w)
	assert.Equal(t, 45, h)

	_, _, err = Dimensions(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{name: "landscape into square", w: 1920, h: 1080, maxW: 800, maxH: 800, wantW: 800, wantH: 450},
		{name: "portrait into square", w: 1080, h: 1920, maxW: 800, maxH: 800, wantW: 450, wantH: 800},
		{name: "exact fit", w: 400, h: 300, maxW: 400, maxH: 300, wantW: 400, wantH: 300},
		{name: "small image scales up", w: 100, h: 50, maxW: 400, maxH: 400, wantW: 400, wantH: 200},
		{name: "degenerate input", w: 0, h: 100, maxW: 400, maxH: 400, wantW: 0, wantH: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestThumbnailNeverUpscales(t *testing.T) {
	small := testImage(50, 40)
	thumb := Thumbnail(small, 200, 200)
	assert.Equal(t, 50, thumb.Bounds().Dx())
	assert.Equal(t, 40, thumb.Bounds().Dy())

	big := testImage(400, 200)
	thumb = Thumbnail(big, 100, 100)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 50, thumb.Bounds().Dy())
}
