package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/gogpu/gsplat"
)

func testImage() *gsplat.Image {
	img := gsplat.NewImage(3, 2)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}
	return img
}

func TestWritePPM_Layout(t *testing.T) {
	img := testImage()
	var buf bytes.Buffer
	if err := WritePPM(&buf, img); err != nil {
		t.Fatalf("WritePPM() error = %v", err)
	}

	want := append([]byte("P6\n3 2\n255\n"), img.Pix...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WritePPM() = %q, want %q", buf.Bytes(), want)
	}
}

func TestWritePPM_BadBuffer(t *testing.T) {
	img := &gsplat.Image{Width: 2, Height: 2, Pix: make([]uint8, 5)}
	if err := WritePPM(&bytes.Buffer{}, img); err == nil {
		t.Error("WritePPM() accepted a short buffer")
	}
}

func TestReadPPM_RoundTrip(t *testing.T) {
	img := testImage()
	// Leading whitespace in the raster must survive the header parse.
	img.Pix[0] = '\n'
	img.Pix[1] = ' '

	var buf bytes.Buffer
	if err := WritePPM(&buf, img); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPPM(&buf)
	if err != nil {
		t.Fatalf("ReadPPM() error = %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height || !bytes.Equal(got.Pix, img.Pix) {
		t.Errorf("ReadPPM() = %dx%d %v, want %dx%d %v", got.Width, got.Height, got.Pix, img.Width, img.Height, img.Pix)
	}
}

func TestReadPPM_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"ascii variant", "P3\n1 1\n255\n0 0 0"},
		{"sixteen bit", "P6\n1 1\n65535\n"},
		{"short raster", "P6\n2 1\n255\nabc"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPPM(bytes.NewReader([]byte(tt.input))); err == nil {
				t.Error("ReadPPM() succeeded, want error")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"ppm", PPM},
		{".PNG", PNG},
		{"jpeg", JPEG},
		{"jpg", JPEG},
		{"bmp", BMP},
		{"tif", TIFF},
		{"tiff", TIFF},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("exr"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(exr) error = %v, want ErrUnknownFormat", err)
	}
	if f, err := FormatFromPath("out/test_out/00001.png"); err != nil || f != PNG {
		t.Errorf("FormatFromPath() = %v, %v", f, err)
	}
}

func TestEncode_Decodable(t *testing.T) {
	img := testImage()

	tests := []struct {
		format Format
		decode func(*bytes.Buffer) (image.Image, error)
	}{
		{PNG, func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) }},
		{BMP, func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) }},
		{TIFF, func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) }},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, tt.format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			dec, err := tt.decode(&buf)
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			got := FromImage(dec)
			if !bytes.Equal(got.Pix, img.Pix) {
				t.Errorf("decoded pixels = %v, want %v", got.Pix, img.Pix)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := testImage()

	path := filepath.Join(dir, "frame.ppm")
	if err := Save(path, img); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("P6\n3 2\n255\n")) || len(data) != 11+len(img.Pix) {
		t.Errorf("saved PPM has unexpected layout (%d bytes)", len(data))
	}

	if err := Save(filepath.Join(dir, "frame.xyz"), img); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Save(.xyz) error = %v, want ErrUnknownFormat", err)
	}
}

func TestResize(t *testing.T) {
	img := gsplat.NewImage(8, 8)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i] = 200
	}

	out := Resize(img, 4, 2)
	if out.Width != 4 || out.Height != 2 {
		t.Fatalf("Resize() size = %dx%d, want 4x2", out.Width, out.Height)
	}
	for i := 0; i < len(out.Pix); i += 3 {
		if out.Pix[i] < 199 || out.Pix[i] > 201 || out.Pix[i+1] > 1 || out.Pix[i+2] > 1 {
			t.Fatalf("pixel %d = %v, want ≈ (200,0,0)", i/3, out.Pix[i:i+3])
		}
	}

	same := Resize(img, 8, 8)
	if &same.Pix[0] == &img.Pix[0] || !bytes.Equal(same.Pix, img.Pix) {
		t.Error("Resize() to the same size should return an equal copy")
	}
}
