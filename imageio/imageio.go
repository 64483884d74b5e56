// Package imageio encodes rendered gsplat images.
//
// The binary PPM writer produces exactly the layout
//
//	P6\n{width} {height}\n255\n
//
// followed by the raw row-major RGB bytes of the image. PNG and JPEG come
// from the standard library; BMP and TIFF from golang.org/x/image.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/gogpu/gsplat"
)

// Format is an output image format.
type Format int

const (
	PPM Format = iota
	PNG
	JPEG
	BMP
	TIFF
)

// JPEGQuality is the quality used by Encode for JPEG output.
const JPEGQuality = 95

var formatNames = [...]string{
	PPM:  "ppm",
	PNG:  "png",
	JPEG: "jpg",
	BMP:  "bmp",
	TIFF: "tiff",
}

// ErrUnknownFormat is returned for unrecognized format names.
var ErrUnknownFormat = errors.New("imageio: unknown format")

// String returns the format's canonical file extension without the dot.
func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat parses a format name such as "png" or "jpeg".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "ppm":
		return PPM, nil
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// WritePPM writes img as a binary PPM.
func WritePPM(w io.Writer, img *gsplat.Image) error {
	if len(img.Pix) != img.Width*img.Height*3 {
		return fmt.Errorf("imageio: image buffer holds %d bytes, want %d", len(img.Pix), img.Width*img.Height*3)
	}
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}
	_, err := w.Write(img.Pix)
	return err
}

// ReadPPM reads a binary PPM with a maximum value of 255.
func ReadPPM(r io.Reader) (*gsplat.Image, error) {
	br := bufio.NewReader(r)
	var width, height, maxval int
	var magic string
	if _, err := fmt.Fscan(br, &magic, &width, &height, &maxval); err != nil {
		return nil, fmt.Errorf("imageio: bad PPM header: %w", err)
	}
	if magic != "P6" || maxval != 255 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imageio: unsupported PPM %s %dx%d max %d", magic, width, height, maxval)
	}
	// Exactly one whitespace byte separates the header from the raster.
	if _, err := br.ReadByte(); err != nil {
		return nil, err
	}
	img := gsplat.NewImage(width, height)
	if _, err := io.ReadFull(br, img.Pix); err != nil {
		return nil, fmt.Errorf("imageio: short PPM raster: %w", err)
	}
	return img, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img *gsplat.Image, f Format) error {
	switch f {
	case PPM:
		return WritePPM(w, img)
	case PNG:
		return png.Encode(w, img.ToRGBA())
	case JPEG:
		return jpeg.Encode(w, img.ToRGBA(), &jpeg.Options{Quality: JPEGQuality})
	case BMP:
		return bmp.Encode(w, img.ToRGBA())
	case TIFF:
		return tiff.Encode(w, img.ToRGBA(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// Save writes img to path in the format implied by its extension.
func Save(path string, img *gsplat.Image) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := Encode(w, img, f); err != nil {
		_ = file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Resize scales img to width×height with Catmull-Rom filtering.
func Resize(img *gsplat.Image, width, height int) *gsplat.Image {
	if width == img.Width && height == img.Height {
		out := gsplat.NewImage(width, height)
		copy(out.Pix, img.Pix)
		return out
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img.ToRGBA(), img.Bounds(), draw.Src, nil)
	return FromImage(dst)
}

// FromImage converts any image to an opaque gsplat image.
func FromImage(src image.Image) *gsplat.Image {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	out := gsplat.NewImage(b.Dx(), b.Dy())
	for y := range out.Height {
		row := rgba.Pix[y*rgba.Stride:]
		dst := out.Pix[y*out.Stride():]
		for x := range out.Width {
			dst[x*3] = row[x*4]
			dst[x*3+1] = row[x*4+1]
			dst[x*3+2] = row[x*4+2]
		}
	}
	return out
}
