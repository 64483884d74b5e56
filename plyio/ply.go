// Package plyio loads Gaussian splat scenes from PLY files and cameras
// from the cameras.json descriptors written by 3D Gaussian Splatting
// training runs.
//
// Scene files store activations in their pre-activation form: opacity as
// a logit, scales as logarithms and rotation as an unnormalized
// quaternion. LoadScene applies the activations and builds the 3D
// covariance of every Gaussian. Files ending in .zst or .gz are
// decompressed on the fly.
package plyio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/gsplat"
)

// Errors returned by the PLY reader.
var (
	ErrNotPLY           = errors.New("plyio: not a PLY file")
	ErrUnsupported      = errors.New("plyio: unsupported PLY layout")
	ErrMissingProperty  = errors.New("plyio: missing vertex property")
	ErrTruncatedPayload = errors.New("plyio: truncated vertex data")
)

type encoding int

const (
	encASCII encoding = iota
	encBinaryLE
	encBinaryBE
)

type propType int

const (
	typeInt8 propType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

var propTypes = map[string]propType{
	"char": typeInt8, "int8": typeInt8,
	"uchar": typeUint8, "uint8": typeUint8,
	"short": typeInt16, "int16": typeInt16,
	"ushort": typeUint16, "uint16": typeUint16,
	"int": typeInt32, "int32": typeInt32,
	"uint": typeUint32, "uint32": typeUint32,
	"float": typeFloat32, "float32": typeFloat32,
	"double": typeFloat64, "float64": typeFloat64,
}

func (t propType) size() int {
	switch t {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	default:
		return 8
	}
}

type property struct {
	name   string
	typ    propType
	offset int
}

// header describes the vertex element of a PLY file.
type header struct {
	enc        encoding
	count      int
	props      []property
	recordSize int

	// size is the number of header bytes, end_header line included.
	size int64
}

func (h *header) index(name string) int {
	for i, p := range h.props {
		if p.name == name {
			return i
		}
	}
	return -1
}

// readHeader parses the header up to end_header. The vertex element must
// be the first element; elements after it are ignored.
func readHeader(r *bufio.Reader) (*header, error) {
	h := &header{}
	line, err := h.readLine(r)
	if err != nil || line != "ply" {
		return nil, ErrNotPLY
	}

	var (
		haveFormat bool
		inVertex   bool
		seenVertex bool
	)
	for {
		line, err := h.readLine(r)
		if err != nil {
			return nil, fmt.Errorf("plyio: reading header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %q", ErrNotPLY, line)
			}
			switch fields[1] {
			case "ascii":
				h.enc = encASCII
			case "binary_little_endian":
				h.enc = encBinaryLE
			case "binary_big_endian":
				h.enc = encBinaryBE
			default:
				return nil, fmt.Errorf("%w: format %s", ErrUnsupported, fields[1])
			}
			haveFormat = true
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrNotPLY, line)
			}
			if seenVertex {
				inVertex = false
				continue
			}
			if fields[1] != "vertex" {
				return nil, fmt.Errorf("%w: element %q precedes vertex", ErrUnsupported, fields[1])
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: vertex count %q", ErrNotPLY, fields[2])
			}
			h.count = n
			inVertex, seenVertex = true, true
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: vertex property %q", ErrUnsupported, line)
			}
			t, ok := propTypes[fields[1]]
			if !ok {
				return nil, fmt.Errorf("%w: property type %q", ErrUnsupported, fields[1])
			}
			h.props = append(h.props, property{name: fields[2], typ: t, offset: h.recordSize})
			h.recordSize += t.size()
		case "end_header":
			if !haveFormat || !seenVertex {
				return nil, fmt.Errorf("%w: missing format or vertex element", ErrNotPLY)
			}
			return h, nil
		default:
			return nil, fmt.Errorf("%w: header line %q", ErrNotPLY, line)
		}
	}
}

// readLine reads one header line and counts it towards h.size.
func (h *header) readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	h.size += int64(len(line))
	return trimLine(line, err)
}

func readLine(r *bufio.Reader) (string, error) {
	return trimLine(r.ReadString('\n'))
}

func trimLine(line string, err error) (string, error) {
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// remaining returns the number of bytes left in r from its current offset,
// or -1 when r is not a regular file.
func remaining(r io.Reader) int64 {
	f, ok := r.(interface {
		io.Seeker
		Stat() (fs.FileInfo, error)
	})
	if !ok {
		return -1
	}
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return -1
	}
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	return fi.Size() - off
}

// maxPrealloc bounds the number of Gaussians allocated up front, so a
// header vertex count is never trusted before the payload is read.
const maxPrealloc = 1 << 16

// ReadScene decodes an uncompressed PLY stream. A binary payload read
// from a regular file is checked against the file size before decoding.
func ReadScene(r io.Reader) (*gsplat.Scene, error) {
	avail := remaining(r)
	br := bufio.NewReaderSize(r, 1<<20)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	lay, err := newLayout(h)
	if err != nil {
		return nil, err
	}

	n := h.count
	if avail >= 0 && h.enc != encASCII {
		if payload := avail - h.size; int64(n) > payload/int64(h.recordSize) {
			return nil, fmt.Errorf("%w: %d vertices of %d bytes, %d payload bytes",
				ErrTruncatedPayload, n, h.recordSize, payload)
		}
	}

	c := min(n, maxPrealloc)
	positions := make([]float32, 0, c*gsplat.PositionFloats)
	shs := make([]float32, 0, c*gsplat.SHFloats)
	opacities := make([]float32, 0, c)
	covariances := make([]float32, 0, c*gsplat.CovarianceFloats)

	values := make([]float64, len(h.props))
	next := recordReader(br, h, values)
	for i := range n {
		if err := next(); err != nil {
			return nil, fmt.Errorf("%w: vertex %d: %v", ErrTruncatedPayload, i, err)
		}
		positions = extend(positions, gsplat.PositionFloats)
		shs = extend(shs, gsplat.SHFloats)
		opacities = extend(opacities, 1)
		covariances = extend(covariances, gsplat.CovarianceFloats)
		lay.apply(values, i, positions, shs, opacities, covariances)
	}

	return gsplat.NewScene(positions, shs, opacities, covariances)
}

// extend grows s by n zeroed elements.
func extend(s []float32, n int) []float32 {
	s = slices.Grow(s, n)
	return s[:len(s)+n]
}

// recordReader returns a function that decodes the next vertex into values.
func recordReader(r *bufio.Reader, h *header, values []float64) func() error {
	if h.enc == encASCII {
		return func() error {
			line, err := readLine(r)
			if err != nil {
				return err
			}
			fields := strings.Fields(line)
			if len(fields) < len(values) {
				return fmt.Errorf("%d values, want %d", len(fields), len(values))
			}
			for i := range values {
				v, err := strconv.ParseFloat(fields[i], 64)
				if err != nil {
					return err
				}
				values[i] = v
			}
			return nil
		}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if h.enc == encBinaryBE {
		order = binary.BigEndian
	}
	buf := make([]byte, h.recordSize)
	return func() error {
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		for i, p := range h.props {
			values[i] = decode(order, buf[p.offset:], p.typ)
		}
		return nil
	}
}

func decode(order binary.ByteOrder, b []byte, t propType) float64 {
	switch t {
	case typeInt8:
		return float64(int8(b[0]))
	case typeUint8:
		return float64(b[0])
	case typeInt16:
		return float64(int16(order.Uint16(b))) //nolint:gosec // two's complement reinterpretation
	case typeUint16:
		return float64(order.Uint16(b))
	case typeInt32:
		return float64(int32(order.Uint32(b))) //nolint:gosec // two's complement reinterpretation
	case typeUint32:
		return float64(order.Uint32(b))
	case typeFloat32:
		return float64(math.Float32frombits(order.Uint32(b)))
	default:
		return math.Float64frombits(order.Uint64(b))
	}
}

// layout maps PLY property indices to Gaussian attributes.
type layout struct {
	pos     [3]int
	dc      [3]int
	rest    []int // channel-major: rest[c*perChannel + k]
	perChan int
	opacity int
	scale   [3]int
	rot     [4]int
}

func newLayout(h *header) (*layout, error) {
	lay := &layout{}
	need := func(name string) (int, error) {
		i := h.index(name)
		if i < 0 {
			return 0, fmt.Errorf("%w: %s", ErrMissingProperty, name)
		}
		return i, nil
	}

	var err error
	for c, name := range []string{"x", "y", "z"} {
		if lay.pos[c], err = need(name); err != nil {
			return nil, err
		}
	}
	for c := range 3 {
		if lay.dc[c], err = need(fmt.Sprintf("f_dc_%d", c)); err != nil {
			return nil, err
		}
		if lay.scale[c], err = need(fmt.Sprintf("scale_%d", c)); err != nil {
			return nil, err
		}
	}
	for c := range 4 {
		if lay.rot[c], err = need(fmt.Sprintf("rot_%d", c)); err != nil {
			return nil, err
		}
	}
	if lay.opacity, err = need("opacity"); err != nil {
		return nil, err
	}

	for k := 0; ; k++ {
		i := h.index(fmt.Sprintf("f_rest_%d", k))
		if i < 0 {
			break
		}
		lay.rest = append(lay.rest, i)
	}
	if len(lay.rest)%3 != 0 || len(lay.rest)/3 > gsplat.SHFloats/3-1 {
		return nil, fmt.Errorf("%w: %d f_rest properties", ErrUnsupported, len(lay.rest))
	}
	lay.perChan = len(lay.rest) / 3
	return lay, nil
}

// apply activates one vertex and stores it as Gaussian i.
func (l *layout) apply(v []float64, i int, positions, shs, opacities, covariances []float32) {
	for c := range 3 {
		positions[i*3+c] = float32(v[l.pos[c]])
	}

	sh := shs[i*gsplat.SHFloats : (i+1)*gsplat.SHFloats]
	for c := range 3 {
		sh[c] = float32(v[l.dc[c]])
		for k := range l.perChan {
			sh[3*(k+1)+c] = float32(v[l.rest[c*l.perChan+k]])
		}
	}

	opacities[i] = float32(sigmoid(v[l.opacity]))

	var scale [3]float32
	for c := range 3 {
		scale[c] = float32(math.Exp(v[l.scale[c]]))
	}
	var rot [4]float32
	for c := range 4 {
		rot[c] = float32(v[l.rot[c]])
	}
	cov := gsplat.CovarianceFromScaleRotation(scale, rot)
	copy(covariances[i*gsplat.CovarianceFloats:], cov[:])
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
