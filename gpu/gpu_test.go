//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/raymarch"
)

func TestInitRegistersOrFallsBack(t *testing.T) {
	b := raymarch.RegisteredBackend()
	if b == nil {
		t.Log("GPU backend not registered (no device); software fallback in use")
		d := raymarch.DefaultBackend()
		defer d.Close()
		if d.Name() != "software" {
			t.Error("DefaultBackend() should fall back to software")
		}
		return
	}
	if b.Name() != "gpu" {
		t.Errorf("registered backend = %q, want gpu", b.Name())
	}
}

func TestNewBackend(t *testing.T) {
	if NewBackend().Name() != "gpu" {
		t.Error("NewBackend() is not the GPU backend")
	}
}
