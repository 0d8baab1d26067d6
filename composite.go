package raymarch

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ToRGBA converts linear RGBA32F texels (four floats per pixel, row-major)
// into an 8-bit image, clamping each channel to [0, 1].
func ToRGBA(texels []float32, size Size) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	n := min(len(texels)/4, size.Width*size.Height)
	for i := 0; i < n; i++ {
		img.Pix[i*4+0] = unorm8(texels[i*4+0])
		img.Pix[i*4+1] = unorm8(texels[i*4+1])
		img.Pix[i*4+2] = unorm8(texels[i*4+2])
		img.Pix[i*4+3] = unorm8(texels[i*4+3])
	}
	return img
}

func unorm8(v float32) uint8 {
	if !(v > 0) { // also catches NaN
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Composite draws src over the whole of dst, replacing its contents.
// When the sizes differ src is scaled with bilinear filtering.
func Composite(dst draw.Image, src *image.RGBA) {
	db := dst.Bounds()
	if db.Empty() {
		return
	}
	if db.Size() == src.Bounds().Size() {
		if d, ok := dst.(*image.RGBA); ok && db == src.Bounds() && d.Stride == src.Stride {
			copy(d.Pix, src.Pix)
			return
		}
		draw.Draw(dst, db, src, src.Bounds().Min, draw.Src)
		return
	}
	xdraw.BiLinear.Scale(dst, db, src, src.Bounds(), xdraw.Src, nil)
}
