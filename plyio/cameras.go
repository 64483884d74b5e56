package plyio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/gsplat"
)

// cameraJSON is one entry of cameras.json.
type cameraJSON struct {
	ID       int           `json:"id"`
	ImgName  string        `json:"img_name"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Position [3]float32    `json:"position"`
	Rotation [3][3]float32 `json:"rotation"`
	Fx       float32       `json:"fx"`
	Fy       float32       `json:"fy"`
}

// Resolution overrides the rendered size of loaded cameras. The zero
// value keeps each camera's own size.
type Resolution struct {
	Width, Height int
}

// IsZero reports whether r requests no override.
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// ParseResolution parses "WIDTHxHEIGHT", e.g. "1920x1080".
func ParseResolution(s string) (Resolution, error) {
	ws, hs, ok := strings.Cut(s, "x")
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if !ok || errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("plyio: resolution must be WIDTHxHEIGHT (e.g. 1920x1080), got %q", s)
	}
	return Resolution{Width: w, Height: h}, nil
}

// ReadCameras decodes a cameras.json list. The native size of every
// camera is the size recorded in the file; res, when non-zero, replaces
// the rendered size.
func ReadCameras(r io.Reader, res Resolution) ([]gsplat.Camera, error) {
	var entries []cameraJSON
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("plyio: decoding cameras: %w", err)
	}

	cams := make([]gsplat.Camera, len(entries))
	for i, e := range entries {
		c := gsplat.NewCamera(e.ID, e.ImgName, e.Width, e.Height, e.Fx, e.Fy, e.Position, e.Rotation)
		if !res.IsZero() {
			c = c.WithResolution(res.Width, res.Height)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("plyio: camera %d (%s): %w", e.ID, e.ImgName, err)
		}
		cams[i] = c
	}
	return cams, nil
}

// LoadCameras reads cameras.json from path.
func LoadCameras(path string, res Resolution) ([]gsplat.Camera, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	cams, err := ReadCameras(f, res)
	if err != nil {
		return nil, err
	}
	gsplat.Logger().Debug("plyio: cameras loaded", "path", path, "count", len(cams))
	return cams, nil
}
