package raymarch

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDispatchGroups(t *testing.T) {
	tests := []struct {
		w, h   int
		gx, gy uint32
	}{
		{1, 1, 1, 1},
		{7, 7, 1, 1},
		{8, 8, 1, 1},
		{9, 9, 2, 2},
		{1920, 1080, 240, 135},
		{1921, 1079, 241, 135},
		{0, 10, 0, 0},
		{-5, 10, 0, 0},
	}
	for _, tt := range tests {
		gx, gy := DispatchGroups(tt.w, tt.h)
		if gx != tt.gx || gy != tt.gy {
			t.Errorf("DispatchGroups(%d, %d) = (%d, %d), want (%d, %d)", tt.w, tt.h, gx, gy, tt.gx, tt.gy)
		}
	}
}

func TestSize(t *testing.T) {
	if !(Size{}).Empty() || (Size{Width: 1, Height: 1}).Empty() {
		t.Error("Empty() wrong")
	}
	if got := (Size{Width: 640, Height: 480}).String(); got != "640x480" {
		t.Errorf("String() = %q", got)
	}
}

func TestFrameParams_Bytes(t *testing.T) {
	cam := testCamera()
	p, err := NewFrameParams(cam, NewDirectionalLight(V3(0, 0, -3), 2), Size{Width: 640, Height: 360}, 30)
	if err != nil {
		t.Fatal(err)
	}
	buf := p.Bytes()
	if len(buf) != 176 {
		t.Fatalf("len(Bytes()) = %d, want 176", len(buf))
	}
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	// camera position sits in the fourth column of camera-to-world
	if f32(48) != 0 || f32(52) != 0 || f32(56) != 20 || f32(60) != 1 {
		t.Errorf("camera translation = (%v, %v, %v, %v)", f32(48), f32(52), f32(56), f32(60))
	}
	if f32(128) != 0.1 || f32(132) != 100 {
		t.Errorf("clip range = (%v, %v)", f32(128), f32(132))
	}
	if f32(144) != 0 || f32(148) != 0 || f32(152) != -1 || f32(156) != 2 {
		t.Errorf("light = (%v, %v, %v, %v)", f32(144), f32(148), f32(152), f32(156))
	}
	if u32(160) != 640 || u32(164) != 360 || u32(168) != 30 {
		t.Errorf("size block = (%d, %d, %d)", u32(160), u32(164), u32(168))
	}
}
