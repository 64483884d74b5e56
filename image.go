package gsplat

import (
	"image"
	"image/color"
)

// Image is an 8-bit RGB framebuffer, rows top to bottom, channels
// interleaved. It implements image.Image.
type Image struct {
	Width, Height int

	// Pix holds Width*Height*3 bytes.
	Pix []uint8
}

// NewImage allocates a black image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Stride returns the number of bytes per row.
func (img *Image) Stride() int {
	return img.Width * 3
}

// RGB returns the channels of pixel (x, y).
func (img *Image) RGB(x, y int) (r, g, b uint8) {
	o := y*img.Stride() + x*3
	return img.Pix[o], img.Pix[o+1], img.Pix[o+2]
}

// ColorModel implements image.Image.
func (img *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.Width, img.Height)
}

// At implements image.Image. Pixels are opaque.
func (img *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return color.RGBA{}
	}
	r, g, b := img.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ToRGBA converts the image to an *image.RGBA.
func (img *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	for i, j := 0, 0; i < len(img.Pix); i, j = i+3, j+4 {
		out.Pix[j] = img.Pix[i]
		out.Pix[j+1] = img.Pix[i+1]
		out.Pix[j+2] = img.Pix[i+2]
		out.Pix[j+3] = 255
	}
	return out
}

func (img *Image) fits(width, height int) bool {
	return img.Width == width && img.Height == height && len(img.Pix) == width*height*3
}
