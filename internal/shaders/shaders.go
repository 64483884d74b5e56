// Package shaders holds WGSL compute kernels for the key emission, range
// identification and compositing stages, and compiles them to SPIR-V.
//
// The kernels mirror the CPU stages and share their conventions: keys
// are split into a tile word and an order-preserving depth word, ranges
// are half-open, and compositing samples pixels at integer coordinates.
// The CPU pipeline does not depend on them; gsrender can export the
// compiled modules for GPU hosts.
package shaders

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
)

//go:embed keys.wgsl
var keysShaderSource string

//go:embed ranges.wgsl
var rangesShaderSource string

//go:embed composite.wgsl
var compositeShaderSource string

// Kernel names.
const (
	Keys      = "keys"
	Ranges    = "ranges"
	Composite = "composite"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// ErrUnknownKernel is returned for a kernel name not listed by Names.
var ErrUnknownKernel = errors.New("shaders: unknown kernel")

var sources = map[string]*string{
	Keys:      &keysShaderSource,
	Ranges:    &rangesShaderSource,
	Composite: &compositeShaderSource,
}

// EntryPoint returns the compute entry point of a kernel.
func EntryPoint(name string) string {
	switch name {
	case Keys:
		return "emit_keys"
	case Ranges:
		return "identify_ranges"
	case Composite:
		return "composite"
	}
	return ""
}

// Names returns the kernel names in sorted order.
func Names() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the WGSL source of a kernel.
func Source(name string) (string, error) {
	src, ok := sources[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	if *src == "" {
		return "", fmt.Errorf("shaders: %s source is empty", name)
	}
	return *src, nil
}

// Compile compiles a kernel to SPIR-V bytes.
func Compile(name string) ([]byte, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shaders: failed to compile %s: %w", name, err)
	}
	return spirv, nil
}

// Words converts SPIR-V bytes to little-endian 32-bit words.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("shaders: SPIR-V length %d is not a multiple of 4", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	if len(words) > 0 && words[0] != SPIRVMagic {
		return nil, fmt.Errorf("shaders: invalid SPIR-V magic 0x%08X", words[0])
	}
	return words, nil
}
