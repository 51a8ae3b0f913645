package tex

import (
	"image"
	"image/color"
)

// Interop with the standard library image package. HDR content is clamped to
// [0, 1] on the way out; only the first face and mip level are exposed.

// GoImage returns face 0, mip 0 as an 8-bit image.NRGBA. Formats without an
// alpha channel produce a fully opaque image.
func (im *Image) GoImage() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	bpp := im.Format.BytesPerPixel()
	pitch := im.Width * bpp

	var px [4]float32
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			toCanonical(px[:], im.Format, im.Data[y*pitch+x*bpp:y*pitch+(x+1)*bpp])
			i := out.PixOffset(x, y)
			out.Pix[i+0] = unorm8(px[0])
			out.Pix[i+1] = unorm8(px[1])
			out.Pix[i+2] = unorm8(px[2])
			out.Pix[i+3] = unorm8(px[3])
		}
	}
	return out
}

// FromGoImage converts a standard library image into a single-face,
// single-mip RGBA8 Image.
func FromGoImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := New(w, h, FormatRGBA8, 1, 1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			off := (y*w + x) * 4
			dst.Data[off+0] = c.R
			dst.Data[off+1] = c.G
			dst.Data[off+2] = c.B
			dst.Data[off+3] = c.A
		}
	}
	return dst
}
