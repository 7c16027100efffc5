// Package imaging normalizes uploaded photos and derives the pixel
// heuristics used to describe a clothing item.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension is the maximum width or height for stored images.
const DefaultMaxDimension = 1024

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// ErrUnsupportedFormat is returned for uploads that are not JPEG, PNG or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessResult contains the processed image.
type ProcessResult struct {
	Data  []byte
	MIME  string
	Image image.Image
}

// Process validates the format by sniffing bytes, downscales images larger
// than maxDim and re-encodes them as JPEG. A maxDim <= 0 uses
// DefaultMaxDimension.
func Process(r io.Reader, maxDim int) (*ProcessResult, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG, PNG and WebP accepted)", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupportedFormat, detected, err)
	}

	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &ProcessResult{
		Data:  buf.Bytes(),
		MIME:  "image/jpeg",
		Image: img,
	}, nil
}

// Load decodes the image stored at path.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	return img, nil
}

// downscale resizes the image so neither dimension exceeds maxDim, keeping
// the aspect ratio. Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
