// Package images handles decoding, listing and display scaling for the
// image files an annotation project works over.
package images

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies a supported image format.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
	FormatUnknown Format = ""
)

// Accepted file extensions, lowercase. Matches the set the annotation
// pipeline scans for.
var extFormats = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".bmp":  FormatBMP,
	".gif":  FormatGIF,
	".webp": FormatWebP,
}

// IsImageFile reports whether the path carries an accepted image
// extension.
func IsImageFile(path string) bool {
	_, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FormatForPath maps a file extension to its format, FormatUnknown if
// unrecognized.
func FormatForPath(path string) Format {
	return extFormats[strings.ToLower(filepath.Ext(path))]
}

// Sniff detects the format from leading magic bytes, falling back to
// FormatUnknown. Needs at most the first 12 bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return FormatPNG
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return FormatGIF
	case len(data) >= 2 && bytes.Equal(data[:2], []byte("BM")):
		return FormatBMP
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return FormatUnknown
	}
}
