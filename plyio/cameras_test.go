package plyio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gsplat"
)

const camerasJSON = `[
  {"id": 0, "img_name": "00001", "width": 1959, "height": 1090,
   "position": [1.5, -0.5, 2.0],
   "rotation": [[1, 0, 0], [0, 1, 0], [0, 0, 1]],
   "fy": 1160.5, "fx": 1159.5},
  {"id": 1, "img_name": "00002", "width": 800, "height": 600,
   "position": [0, 0, 0],
   "rotation": [[0, 0, 1], [0, 1, 0], [-1, 0, 0]],
   "fy": 700, "fx": 700}
]`

func TestReadCameras(t *testing.T) {
	cams, err := ReadCameras(strings.NewReader(camerasJSON), Resolution{})
	if err != nil {
		t.Fatalf("ReadCameras() error = %v", err)
	}
	if len(cams) != 2 {
		t.Fatalf("len = %d, want 2", len(cams))
	}

	c := cams[0]
	if c.ID != 0 || c.ImageName != "00001" || c.Width != 1959 || c.Height != 1090 {
		t.Errorf("camera 0 = %+v", c)
	}
	if c.Fx != 1159.5 || c.Fy != 1160.5 {
		t.Errorf("focal = (%g, %g), want (1159.5, 1160.5)", c.Fx, c.Fy)
	}
	if c.Position != [3]float32{1.5, -0.5, 2} {
		t.Errorf("position = %v", c.Position)
	}
	if c.Near != gsplat.DefaultNear || c.Far != gsplat.DefaultFar {
		t.Errorf("clip = (%g, %g), want defaults", c.Near, c.Far)
	}
	if cams[1].Rotation[2][0] != -1 {
		t.Errorf("rotation = %v", cams[1].Rotation)
	}
}

func TestReadCameras_ResolutionOverride(t *testing.T) {
	cams, err := ReadCameras(strings.NewReader(camerasJSON), Resolution{Width: 640, Height: 360})
	if err != nil {
		t.Fatalf("ReadCameras() error = %v", err)
	}
	for _, c := range cams {
		if c.Width != 640 || c.Height != 360 {
			t.Errorf("camera %d size = %dx%d, want 640x360", c.ID, c.Width, c.Height)
		}
	}
	if cams[0].NativeWidth != 1959 || cams[0].NativeHeight != 1090 {
		t.Errorf("native size = %dx%d, want 1959x1090", cams[0].NativeWidth, cams[0].NativeHeight)
	}
	if fx, _ := cams[0].Focal(gsplat.FocalNative); fx != 1159.5 {
		t.Errorf("native focal = %g, want unchanged 1159.5", fx)
	}
}

func TestReadCameras_Invalid(t *testing.T) {
	bad := `[{"id": 3, "img_name": "x", "width": 0, "height": 10, "fx": 1, "fy": 1}]`
	if _, err := ReadCameras(strings.NewReader(bad), Resolution{}); !errors.Is(err, gsplat.ErrInvalidCamera) {
		t.Errorf("ReadCameras() error = %v, want ErrInvalidCamera", err)
	}
	if _, err := ReadCameras(strings.NewReader("{"), Resolution{}); err == nil {
		t.Error("ReadCameras() accepted malformed JSON")
	}
}

func TestLoadCameras(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.json")
	if err := os.WriteFile(path, []byte(camerasJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	cams, err := LoadCameras(path, Resolution{})
	if err != nil || len(cams) != 2 {
		t.Fatalf("LoadCameras() = %d cameras, %v", len(cams), err)
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"1920x1080", Resolution{1920, 1080}, false},
		{"64x48", Resolution{64, 48}, false},
		{"1920", Resolution{}, true},
		{"0x10", Resolution{}, true},
		{"-5x10", Resolution{}, true},
		{"axb", Resolution{}, true},
		{"10x10x10", Resolution{}, true},
	}
	for _, tt := range tests {
		got, err := ParseResolution(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseResolution(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
