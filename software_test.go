package raymarch

import (
	"errors"
	"image"
	"testing"
)

func TestSoftwareBackend_ForeignResources(t *testing.T) {
	a := NewSoftwareBackend(WithWorkers(1))
	b := NewSoftwareBackend(WithWorkers(1))
	defer a.Close()
	defer b.Close()

	size := Size{Width: 8, Height: 8}
	spheres, _ := Generate(smallParams())
	bufA, _ := a.CreateSphereBuffer(spheres)
	imgA, _ := a.CreateOutputImage(size)
	bufB, _ := b.CreateSphereBuffer(spheres)

	params, err := NewFrameParams(testCamera(), testLight(), size, len(spheres))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Dispatch(params, bufB, imgA, 1, 1); !errors.Is(err, ErrForeignResource) {
		t.Errorf("Dispatch(foreign buffer) = %v, want ErrForeignResource", err)
	}
	if err := b.Blit(imgA, image.NewRGBA(image.Rect(0, 0, 8, 8))); !errors.Is(err, ErrForeignResource) {
		t.Errorf("Blit(foreign image) = %v, want ErrForeignResource", err)
	}
	if err := a.Dispatch(params, bufA, imgA, 1, 1); err != nil {
		t.Errorf("Dispatch(own resources) = %v", err)
	}
}

func TestSoftwareBackend_ReleasedResources(t *testing.T) {
	b := NewSoftwareBackend(WithWorkers(1))
	defer b.Close()

	size := Size{Width: 4, Height: 4}
	spheres, _ := Generate(smallParams())
	buf, _ := b.CreateSphereBuffer(spheres)
	img, _ := b.CreateOutputImage(size)
	params, _ := NewFrameParams(testCamera(), testLight(), size, buf.Count())

	buf.Release()
	buf.Release()
	if !buf.Released() {
		t.Fatal("Released() = false after Release")
	}
	if err := b.Dispatch(params, buf, img, 1, 1); !errors.Is(err, ErrResourceReleased) {
		t.Errorf("Dispatch(released buffer) = %v, want ErrResourceReleased", err)
	}

	img.Release()
	if _, err := b.Texels(img); !errors.Is(err, ErrResourceReleased) {
		t.Errorf("Texels(released image) = %v, want ErrResourceReleased", err)
	}
	if s := b.Stats(); s.LiveSphereBuffers != 0 || s.LiveImages != 0 {
		t.Errorf("live counters = %d/%d after double release, want 0/0", s.LiveSphereBuffers, s.LiveImages)
	}
}

func TestSoftwareBackend_InvalidImageSize(t *testing.T) {
	b := NewSoftwareBackend(WithWorkers(1))
	defer b.Close()
	if _, err := b.CreateOutputImage(Size{Width: 0, Height: 4}); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("CreateOutputImage(0x4) = %v, want ErrInvalidViewport", err)
	}
}

func TestSoftwareBackend_SizeMismatch(t *testing.T) {
	b := NewSoftwareBackend(WithWorkers(1))
	defer b.Close()

	spheres, _ := Generate(smallParams())
	buf, _ := b.CreateSphereBuffer(spheres)
	img, _ := b.CreateOutputImage(Size{Width: 8, Height: 8})
	params, _ := NewFrameParams(testCamera(), testLight(), Size{Width: 16, Height: 8}, buf.Count())
	if err := b.Dispatch(params, buf, img, 2, 1); err == nil {
		t.Error("Dispatch with mismatched size succeeded")
	}
}

func TestSoftwareBackend_WorkerCountDoesNotChangeOutput(t *testing.T) {
	render := func(workers int) []float32 {
		b := NewSoftwareBackend(WithWorkers(workers))
		defer b.Close()
		size := Size{Width: 37, Height: 21}
		spheres, _ := Generate(DefaultGenerationParams())
		buf, _ := b.CreateSphereBuffer(spheres)
		img, _ := b.CreateOutputImage(size)
		cam := NewPerspectiveCamera(V3(0, 15, 60), V3(0, 10, 0), V3(0, 1, 0), 1, 37.0/21, 0.3, 1000)
		params, _ := NewFrameParams(cam, testLight(), size, buf.Count())
		gx, gy := DispatchGroups(size.Width, size.Height)
		if err := b.Dispatch(params, buf, img, gx, gy); err != nil {
			t.Fatal(err)
		}
		texels, err := b.Texels(img)
		if err != nil {
			t.Fatal(err)
		}
		return texels
	}

	serial := render(1)
	parallel := render(6)
	if len(serial) != 37*21*4 {
		t.Fatalf("len(texels) = %d", len(serial))
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("texel %d differs: %v vs %v", i, serial[i], parallel[i])
		}
	}
	for i := 3; i < len(serial); i += 4 {
		if serial[i] != 1 {
			t.Fatalf("pixel %d alpha = %v, want 1 (every invocation writes)", i/4, serial[i])
		}
	}
}

func TestSoftwareBackend_CloseAndInit(t *testing.T) {
	b := NewSoftwareBackend(WithWorkers(2))
	b.Close()
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	size := Size{Width: 9, Height: 9}
	spheres, _ := Generate(smallParams())
	buf, _ := b.CreateSphereBuffer(spheres)
	img, _ := b.CreateOutputImage(size)
	params, _ := NewFrameParams(testCamera(), testLight(), size, buf.Count())
	if err := b.Dispatch(params, buf, img, 2, 2); err != nil {
		t.Fatalf("Dispatch after Init = %v", err)
	}
	if b.Stats().Dispatches != 1 {
		t.Errorf("Dispatches = %d, want 1", b.Stats().Dispatches)
	}
}
