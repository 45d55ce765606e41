// Package photo turns a user-supplied homework photo into the bounded JPEG
// data URI that is sent for grading.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"homework-grader/api/internal/util"
)

const (
	// MaxDimension bounds the larger side of a normalized image; 1500px keeps
	// handwriting legible and uploads small.
	MaxDimension = 1500
	// JPEGQuality is the encoder quality (0.7 on a 0..1 scale).
	JPEGQuality = 70
	// MaxSourcePixels is the largest raster the normalizer will allocate.
	MaxSourcePixels = 100_000_000

	jpegMIME = "image/jpeg"
)

var (
	// ErrDecode means the file is corrupt or not an image format we understand.
	ErrDecode = errors.New("photo: cannot decode image")
	// ErrRender means no raster surface could be produced for the image.
	ErrRender = errors.New("photo: cannot render image")
)

// Image is a normalized capture: a JPEG data URI and its pixel size.
type Image struct {
	DataURI string
	Width   int
	Height  int
}

// JPEG returns the encoded bytes behind the data URI.
func (i Image) JPEG() ([]byte, error) {
	b, _, err := util.DecodeBase64MaybeDataURL(i.DataURI)
	return b, err
}

// Normalizer resizes and recompresses images. The zero value is not usable;
// use NewNormalizer.
type Normalizer struct {
	MaxDimension    int
	Quality         int
	MaxSourcePixels int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		MaxDimension:    MaxDimension,
		Quality:         JPEGQuality,
		MaxSourcePixels: MaxSourcePixels,
	}
}

// Normalize decodes r, scales it so that neither side exceeds MaxDimension,
// flattens it onto white and encodes it as a JPEG data URI.
//
// Errors wrap ErrDecode or ErrRender.
func (n *Normalizer) Normalize(r io.Reader) (Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("%w: read: %v", ErrDecode, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("%w: empty %s image", ErrRender, format)
	}
	if n.MaxSourcePixels > 0 && cfg.Width*cfg.Height > n.MaxSourcePixels {
		return Image{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrRender, cfg.Width, cfg.Height, n.MaxSourcePixels)
	}

	// camera captures carry EXIF orientation; apply it like a browser would
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), n.MaxDimension)

	var scaled image.Image = src
	if w != b.Dx() || h != b.Dy() {
		scaled = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	canvas := imaging.New(w, h, color.White)
	canvas = imaging.Overlay(canvas, scaled, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(n.Quality)); err != nil {
		return Image{}, fmt.Errorf("%w: encode: %v", ErrRender, err)
	}

	return Image{
		DataURI: util.MakeDataURL(jpegMIME, base64.StdEncoding.EncodeToString(buf.Bytes())),
		Width:   w,
		Height:  h,
	}, nil
}

// FitWithin scales (w, h) so the larger side equals limit when it is above limit.
// The aspect ratio is kept; the smaller side is rounded and never below 1.
func FitWithin(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w > h {
		nh := int(math.Round(float64(h) * float64(limit) / float64(w)))
		return limit, atLeastOne(nh)
	}
	nw := int(math.Round(float64(w) * float64(limit) / float64(h)))
	return atLeastOne(nw), limit
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
