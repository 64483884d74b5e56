package shaders

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Binding is one group(0) buffer binding of a kernel.
type Binding struct {
	// Name is the WGSL variable bound at this slot.
	Name string

	Entry gputypes.BindGroupLayoutEntry
}

// Usage returns the buffer usage flags a host needs when creating the
// buffer for b: uniforms and inputs are uploaded, outputs are read back.
func (b Binding) Usage() gputypes.BufferUsage {
	switch b.Entry.Buffer.Type {
	case gputypes.BufferBindingTypeUniform:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	case gputypes.BufferBindingTypeReadOnlyStorage:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	}
}

// Layout returns the bind group layout of a kernel, ordered by binding.
func Layout(name string) ([]Binding, error) {
	uniform := func(binding uint32, name string) Binding {
		return Binding{Name: name, Entry: gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}}
	}
	storageRO := func(binding uint32, name string) Binding {
		return Binding{Name: name, Entry: gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}}
	}
	storageRW := func(binding uint32, name string) Binding {
		return Binding{Name: name, Entry: gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}}
	}

	switch name {
	case Keys:
		return []Binding{
			uniform(0, "params"),
			storageRO(1, "footprints"),
			storageRW(2, "instance_count"),
			storageRW(3, "key_hi"),
			storageRW(4, "key_lo"),
			storageRW(5, "values"),
		}, nil
	case Ranges:
		return []Binding{
			uniform(0, "params"),
			storageRO(1, "key_hi"),
			storageRW(2, "ranges"),
		}, nil
	case Composite:
		return []Binding{
			uniform(0, "params"),
			storageRO(1, "splats"),
			storageRO(2, "values"),
			storageRO(3, "ranges"),
			storageRW(4, "pixels"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
}
