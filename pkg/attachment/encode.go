// Package attachment turns a user-selected image into a compact base64
// payload suitable for transmission, entirely client-side: decode, shrink
// to a byte budget, pick an output format, encode.
package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	// register webp so image.Decode can rasterize it
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for source files the pipeline cannot
// rasterize (camera-raw formats, documents, truncated data).
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

const (
	defaultMaxSide  = 1280
	defaultMaxBytes = 256 * 1024
	defaultQuality  = 0.8
	qualityFloor    = 0.5
	qualityStep     = 0.1
	dimensionStep   = 8 // encoder-friendly dimensions
	minDimension    = 8
)

// Options controls the encode pipeline. Zero values take the defaults.
type Options struct {
	MaxSide         int     // longest edge of the output, in pixels
	MaxBytes        int     // encoded byte budget
	PreferredFormat string  // jpeg | png | webp
	Quality         float64 // 0..1, lossy encode quality
}

func (o *Options) applyDefaults() {
	if o.MaxSide <= 0 {
		o.MaxSide = defaultMaxSide
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.PreferredFormat == "" {
		o.PreferredFormat = FormatJPEG
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = defaultQuality
	}
}

// Encode converts raw image bytes into a base64 payload (no data-URI
// prefix) within the configured byte budget. The quality floor is the
// documented escape hatch: an image that cannot be squeezed under the
// budget at quality 0.5 is returned as-is at that quality.
func Encode(data []byte, opts Options) (string, error) {
	opts.applyDefaults()

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	srcType := mimetype.Detect(data)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: cannot decode %s", ErrUnsupportedFormat, srcType.String())
	}

	tw, th := targetSize(img.Bounds().Dx(), img.Bounds().Dy(), len(data), opts)
	resized := imaging.Resize(img, tw, th, imaging.Lanczos)

	format := outputFormat(srcType.Is("image/png"), resized, opts.PreferredFormat)

	quality := opts.Quality
	for {
		encoded, err := encodeAs(resized, format, quality)
		if err != nil {
			return "", err
		}
		b64 := base64.StdEncoding.EncodeToString(encoded)
		if withinBudget(len(b64), opts.MaxBytes) {
			return b64, nil
		}
		// over budget: go lossy first, then step the quality down
		if format != FormatJPEG {
			format = FormatJPEG
			continue
		}
		if quality-qualityStep < qualityFloor {
			return b64, nil
		}
		quality -= qualityStep
	}
}

// withinBudget applies the base64 size estimate: payload bytes are roughly
// 3/4 of the base64 length.
func withinBudget(base64Len, maxBytes int) bool {
	return float64(base64Len)*0.75 <= float64(maxBytes)
}

// targetSize combines two uniform scale factors: the geometric one (longest
// edge to MaxSide) and a byte estimate (encoded size scales roughly with
// pixel area, so sqrt(budget/actual)); the more aggressive one wins.
// Dimensions are rounded down to multiples of 8 with an 8 px floor.
func targetSize(w, h, srcBytes int, opts Options) (int, int) {
	long := w
	if h > long {
		long = h
	}

	scale := 1.0
	if long > opts.MaxSide {
		scale = float64(opts.MaxSide) / float64(long)
	}
	if srcBytes > opts.MaxBytes {
		if byteScale := math.Sqrt(float64(opts.MaxBytes) / float64(srcBytes)); byteScale < scale {
			scale = byteScale
		}
	}

	return snapDimension(float64(w) * scale), snapDimension(float64(h) * scale)
}

func snapDimension(v float64) int {
	d := (int(v) / dimensionStep) * dimensionStep
	if d < minDimension {
		d = minDimension
	}
	return d
}

// outputFormat keeps PNG for lossless sources with genuine transparency
// (sampled from a corner region); webp encoding is unsupported by the
// runtime and falls back to the lossy default.
func outputFormat(srcIsPNG bool, img image.Image, preferred string) string {
	if srcIsPNG && hasCornerTransparency(img) {
		return FormatPNG
	}
	switch preferred {
	case FormatPNG:
		return FormatPNG
	case FormatWebP:
		return FormatJPEG
	default:
		return FormatJPEG
	}
}

// hasCornerTransparency samples a small region in the top-left corner; a
// single non-opaque pixel counts.
func hasCornerTransparency(img image.Image) bool {
	b := img.Bounds()
	sample := 16
	for y := b.Min.Y; y < b.Min.Y+sample && y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Min.X+sample && x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < math.MaxUint16 {
				return true
			}
		}
	}
	return false
}

func encodeAs(img image.Image, format string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png encode failed: %w", err)
		}
	case FormatJPEG:
		opaque := flattenIfNeeded(img)
		if err := jpeg.Encode(&buf, opaque, &jpeg.Options{Quality: int(quality * 100)}); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return buf.Bytes(), nil
}

// flattenIfNeeded composites transparent pixels onto white; jpeg has no
// alpha channel.
func flattenIfNeeded(img image.Image) image.Image {
	if !hasCornerTransparency(img) {
		return img
	}
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	return imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
}
