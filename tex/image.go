package tex

import (
	"errors"
	"fmt"
)

// Global limits of the image model.
const (
	// MaxMipCount is the largest number of mip levels an image can carry.
	MaxMipCount = 16
	// CubeFaceCount is the number of faces in a cube-map.
	CubeFaceCount = 6
)

var (
	// ErrBounds is returned when a pixel coordinate, mip index or face index
	// is outside the image.
	ErrBounds = errors.New("tex: coordinate out of bounds")
)

// Image is a two-dimensional texture image. It owns a single contiguous byte
// buffer holding every face and mip level, stored face-major, mip-minor,
// row-major, top row first.
//
// NumFaces is 1 for planar images or 6 for cube-maps; no other value is valid.
// NumMips is at least 1 and at most MaxMipCount. Mip level m of a W×H image is
// max(1, W>>m) by max(1, H>>m) pixels.
type Image struct {
	Width    int
	Height   int
	Format   Format
	NumMips  int
	NumFaces int
	Data     []byte
}

// New allocates an image with a zeroed pixel buffer sized for the given
// dimensions, format, mip count and face count.
func New(width, height int, format Format, numMips, numFaces int) *Image {
	img := &Image{
		Width:    width,
		Height:   height,
		Format:   format,
		NumMips:  numMips,
		NumFaces: numFaces,
	}
	img.Data = make([]byte, img.DataSize())
	return img
}

// mipDim returns a dimension at the given mip level, never below 1.
func mipDim(d, mip int) int {
	d >>= uint(mip)
	if d < 1 {
		return 1
	}
	return d
}

// MipWidth returns the width of the given mip level.
func (im *Image) MipWidth(mip int) int { return mipDim(im.Width, mip) }

// MipHeight returns the height of the given mip level.
func (im *Image) MipHeight(mip int) int { return mipDim(im.Height, mip) }

// PixelCount returns the total number of pixels across all faces and mips.
func (im *Image) PixelCount() int {
	count := 0
	for mip := 0; mip < im.NumMips; mip++ {
		count += im.MipWidth(mip) * im.MipHeight(mip)
	}
	return count * im.NumFaces
}

// DataSize returns the byte size of the pixel buffer implied by the image
// dimensions, format, mip count and face count.
func (im *Image) DataSize() int {
	return im.PixelCount() * im.Format.BytesPerPixel()
}

// MipOffsets returns a [NumFaces][NumMips] table of byte offsets into Data.
// The table is derived from the image metadata; it must be recomputed after
// any mutation that replaces the buffer.
func (im *Image) MipOffsets() [][]int {
	bpp := im.Format.BytesPerPixel()
	offsets := make([][]int, im.NumFaces)
	offset := 0
	for face := 0; face < im.NumFaces; face++ {
		offsets[face] = make([]int, im.NumMips)
		for mip := 0; mip < im.NumMips; mip++ {
			offsets[face][mip] = offset
			offset += im.MipWidth(mip) * im.MipHeight(mip) * bpp
		}
	}
	return offsets
}

// FaceOffsets returns the byte offset of each face's data within Data.
func (im *Image) FaceOffsets() []int {
	bpp := im.Format.BytesPerPixel()
	faceSize := 0
	for mip := 0; mip < im.NumMips; mip++ {
		faceSize += im.MipWidth(mip) * im.MipHeight(mip) * bpp
	}
	offsets := make([]int, im.NumFaces)
	for face := range offsets {
		offsets[face] = face * faceSize
	}
	return offsets
}

// IsCubemap reports whether the image is a cube-map: six faces, square.
func (im *Image) IsCubemap() bool {
	return im.NumFaces == CubeFaceCount && im.Width == im.Height
}

// IsLatLong reports whether the image has the 2:1 aspect of an
// equirectangular projection.
func (im *Image) IsLatLong() bool {
	if im.Height == 0 {
		return false
	}
	aspect := float64(im.Width) / float64(im.Height)
	return abs64(aspect-2.0) < 1e-5
}

// IsHStrip reports whether the image is a 6:1 horizontal face strip.
func (im *Image) IsHStrip() bool {
	return im.Height > 0 && im.Width == 6*im.Height
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Ref returns a shallow alias of the image that shares the pixel buffer.
// The alias does not own the buffer; it must not outlive mutations of src.
func (im *Image) Ref() *Image {
	alias := *im
	return &alias
}

// Copy returns a deep copy of the image with its own pixel buffer.
func (im *Image) Copy() *Image {
	dst := *im
	dst.Data = make([]byte, len(im.Data))
	copy(dst.Data, im.Data)
	return &dst
}

// Move transfers src's buffer and metadata into im and leaves src empty.
func (im *Image) Move(src *Image) {
	*im = *src
	src.Data = nil
}

// GetPixel reads the pixel at (x, y) of the given mip and face, converted to
// the requested format. The returned slice is freshly allocated.
func (im *Image) GetPixel(format Format, x, y, mip, face int) ([]byte, error) {
	if mip < 0 || mip >= im.NumMips || face < 0 || face >= im.NumFaces {
		return nil, fmt.Errorf("%w: mip %d face %d", ErrBounds, mip, face)
	}
	mw, mh := im.MipWidth(mip), im.MipHeight(mip)
	if x < 0 || x >= mw || y < 0 || y >= mh {
		return nil, fmt.Errorf("%w: pixel (%d, %d)", ErrBounds, x, y)
	}

	bpp := im.Format.BytesPerPixel()
	offset := im.MipOffsets()[face][mip] + (y*mw+x)*bpp
	src := im.Data[offset : offset+bpp]

	out := make([]byte, format.BytesPerPixel())
	switch {
	case im.Format == format:
		copy(out, src)
	case im.Format == FormatRGBA32F:
		var px [4]float32
		toCanonical(px[:], FormatRGBA32F, src)
		fromCanonical(out, format, px[:])
	default:
		var px [4]float32
		toCanonical(px[:], im.Format, src)
		fromCanonical(out, format, px[:])
	}
	return out, nil
}
