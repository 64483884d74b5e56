package plyio

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/gsplat"
)

// Open opens path for reading and transparently decompresses .zst and .gz
// files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &chainCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &chainCloser{Reader: zr, close: func() error {
			_ = zr.Close()
			return f.Close()
		}}, nil
	}
	return f, nil
}

type chainCloser struct {
	io.Reader
	close func() error
}

func (c *chainCloser) Close() error {
	return c.close()
}

// LoadScene reads a scene from a PLY file.
func LoadScene(path string) (*gsplat.Scene, error) {
	start := time.Now()
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()

	scene, err := ReadScene(rc)
	if err != nil {
		return nil, err
	}
	gsplat.Logger().Info("plyio: scene loaded",
		"path", path,
		"gaussians", scene.Len(),
		"elapsed", time.Since(start))
	return scene, nil
}
