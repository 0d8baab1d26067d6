//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/raymarch/internal/kernel"
)

// compileKernel compiles the ray-marching WGSL source to SPIR-V words.
func compileKernel() ([]uint32, error) {
	spirvBytes, err := naga.Compile(kernel.Source)
	if err != nil {
		return nil, fmt.Errorf("compile raymarch shader: %w", err)
	}
	return spirvWords(spirvBytes)
}

// spirvWords converts little-endian SPIR-V bytes into 32-bit words.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid SPIR-V length %d", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("invalid SPIR-V magic 0x%08X", words[0])
	}
	return words, nil
}

const spirvMagic = 0x07230203
