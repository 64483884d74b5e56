package shaders

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestShaderSources(t *testing.T) {
	tests := []struct {
		name     string
		required []string
	}{
		{
			name: Keys,
			required: []string{
				"@compute",
				"@workgroup_size",
				"KeyParams",
				"atomicAdd",
				"ordered_depth",
				"emit_keys",
			},
		},
		{
			name: Ranges,
			required: []string{
				"@compute",
				"@workgroup_size",
				"RangeParams",
				"TileRange",
				"identify_ranges",
			},
		},
		{
			name: Composite,
			required: []string{
				"@compute",
				"@workgroup_size",
				"CompositeParams",
				"transmittance_min",
				"alpha_max",
				"background",
				"composite",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Source(tt.name)
			if err != nil {
				t.Fatalf("Source(%q) error = %v", tt.name, err)
			}
			for _, req := range tt.required {
				if !strings.Contains(src, req) {
					t.Errorf("%s shader missing required element: %q", tt.name, req)
				}
			}
			if ep := EntryPoint(tt.name); !strings.Contains(src, "fn "+ep+"(") {
				t.Errorf("%s shader has no entry point %q", tt.name, ep)
			}
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{Composite, Keys, Ranges}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestSource_Unknown(t *testing.T) {
	if _, err := Source("blit"); !errors.Is(err, ErrUnknownKernel) {
		t.Errorf("Source(blit) error = %v, want ErrUnknownKernel", err)
	}
	if _, err := Compile("blit"); !errors.Is(err, ErrUnknownKernel) {
		t.Errorf("Compile(blit) error = %v, want ErrUnknownKernel", err)
	}
}

func TestCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			spirv, err := Compile(name)
			if err != nil {
				errStr := err.Error()
				if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				// Atomics are a known limitation in naga
				if strings.Contains(errStr, "lowering error") || strings.Contains(errStr, "atomic") {
					t.Skipf("Skipping: naga atomic/lowering limitation: %v", err)
				}
				t.Fatalf("Compile(%q) error = %v", name, err)
			}

			words, err := Words(spirv)
			if err != nil {
				t.Fatalf("Words() error = %v", err)
			}
			if len(words) < 5 {
				t.Fatalf("SPIR-V too short: %d words", len(words))
			}
			t.Logf("%s shader compiled to %d bytes of SPIR-V", name, len(spirv))
		})
	}
}

func TestWords(t *testing.T) {
	got, err := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Words() error = %v", err)
	}
	if want := []uint32{SPIRVMagic, 1}; !slices.Equal(got, want) {
		t.Errorf("Words() = %#v, want %#v", got, want)
	}

	if _, err := Words([]byte{1, 2, 3}); err == nil {
		t.Error("Words() accepted a truncated module")
	}
	if _, err := Words([]byte{0, 0, 0, 0}); err == nil {
		t.Error("Words() accepted a bad magic number")
	}
}
