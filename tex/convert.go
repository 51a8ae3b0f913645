package tex

import (
	"encoding/binary"
	"math"

	"github.com/mrjoshuak/go-cubemap/half"
)

// Pixel conversion to and from the canonical linear RGBA32F representation.
//
// Normalized integer formats decode as value/MAX and encode as
// round(clamp(v, 0, 1) * MAX). Formats without an alpha channel decode with
// alpha forced to 1. RGBE carries a shared 8-bit exponent biased by 128.

func clamp01f(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func unorm8(v float32) byte {
	return byte(clamp01f(v)*255 + 0.5)
}

func unorm16(v float32) uint16 {
	return uint16(clamp01f(v)*65535 + 0.5)
}

// toCanonical decodes one pixel of the given format into dst[0:4] as linear
// RGBA. An unknown format is a programming error and panics.
func toCanonical(dst []float32, format Format, src []byte) {
	switch format {
	case FormatBGR8:
		dst[0] = float32(src[2]) / 255
		dst[1] = float32(src[1]) / 255
		dst[2] = float32(src[0]) / 255
		dst[3] = 1
	case FormatRGB8:
		dst[0] = float32(src[0]) / 255
		dst[1] = float32(src[1]) / 255
		dst[2] = float32(src[2]) / 255
		dst[3] = 1
	case FormatRGB16:
		dst[0] = float32(binary.LittleEndian.Uint16(src[0:])) / 65535
		dst[1] = float32(binary.LittleEndian.Uint16(src[2:])) / 65535
		dst[2] = float32(binary.LittleEndian.Uint16(src[4:])) / 65535
		dst[3] = 1
	case FormatRGB16F:
		dst[0] = half.FromBits(binary.LittleEndian.Uint16(src[0:])).Float32()
		dst[1] = half.FromBits(binary.LittleEndian.Uint16(src[2:])).Float32()
		dst[2] = half.FromBits(binary.LittleEndian.Uint16(src[4:])).Float32()
		dst[3] = 1
	case FormatRGB32F:
		dst[0] = math.Float32frombits(binary.LittleEndian.Uint32(src[0:]))
		dst[1] = math.Float32frombits(binary.LittleEndian.Uint32(src[4:]))
		dst[2] = math.Float32frombits(binary.LittleEndian.Uint32(src[8:]))
		dst[3] = 1
	case FormatRGBE:
		if src[3] != 0 {
			exp := float32(math.Ldexp(1, int(src[3])-(128+8)))
			dst[0] = float32(src[0]) * exp
			dst[1] = float32(src[1]) * exp
			dst[2] = float32(src[2]) * exp
		} else {
			dst[0], dst[1], dst[2] = 0, 0, 0
		}
		dst[3] = 1
	case FormatBGRA8:
		dst[0] = float32(src[2]) / 255
		dst[1] = float32(src[1]) / 255
		dst[2] = float32(src[0]) / 255
		dst[3] = float32(src[3]) / 255
	case FormatRGBA8:
		dst[0] = float32(src[0]) / 255
		dst[1] = float32(src[1]) / 255
		dst[2] = float32(src[2]) / 255
		dst[3] = float32(src[3]) / 255
	case FormatRGBA16:
		dst[0] = float32(binary.LittleEndian.Uint16(src[0:])) / 65535
		dst[1] = float32(binary.LittleEndian.Uint16(src[2:])) / 65535
		dst[2] = float32(binary.LittleEndian.Uint16(src[4:])) / 65535
		dst[3] = float32(binary.LittleEndian.Uint16(src[6:])) / 65535
	case FormatRGBA16F:
		dst[0] = half.FromBits(binary.LittleEndian.Uint16(src[0:])).Float32()
		dst[1] = half.FromBits(binary.LittleEndian.Uint16(src[2:])).Float32()
		dst[2] = half.FromBits(binary.LittleEndian.Uint16(src[4:])).Float32()
		dst[3] = half.FromBits(binary.LittleEndian.Uint16(src[6:])).Float32()
	case FormatRGBA32F:
		dst[0] = math.Float32frombits(binary.LittleEndian.Uint32(src[0:]))
		dst[1] = math.Float32frombits(binary.LittleEndian.Uint32(src[4:]))
		dst[2] = math.Float32frombits(binary.LittleEndian.Uint32(src[8:]))
		dst[3] = math.Float32frombits(binary.LittleEndian.Uint32(src[12:]))
	default:
		panic("tex: unknown pixel format")
	}
}

// fromCanonical encodes the linear RGBA value in src[0:4] into dst as one
// pixel of the given format. An unknown format is a programming error and
// panics.
func fromCanonical(dst []byte, format Format, src []float32) {
	switch format {
	case FormatBGR8:
		dst[2] = unorm8(src[0])
		dst[1] = unorm8(src[1])
		dst[0] = unorm8(src[2])
	case FormatRGB8:
		dst[0] = unorm8(src[0])
		dst[1] = unorm8(src[1])
		dst[2] = unorm8(src[2])
	case FormatRGB16:
		binary.LittleEndian.PutUint16(dst[0:], unorm16(src[0]))
		binary.LittleEndian.PutUint16(dst[2:], unorm16(src[1]))
		binary.LittleEndian.PutUint16(dst[4:], unorm16(src[2]))
	case FormatRGB16F:
		binary.LittleEndian.PutUint16(dst[0:], half.FromFloat32(src[0]).Bits())
		binary.LittleEndian.PutUint16(dst[2:], half.FromFloat32(src[1]).Bits())
		binary.LittleEndian.PutUint16(dst[4:], half.FromFloat32(src[2]).Bits())
	case FormatRGB32F:
		binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(src[0]))
		binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(src[1]))
		binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(src[2]))
	case FormatRGBE:
		maxVal := src[0]
		if src[1] > maxVal {
			maxVal = src[1]
		}
		if src[2] > maxVal {
			maxVal = src[2]
		}
		if maxVal <= 0 {
			dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
			return
		}
		exp := math.Ceil(math.Log2(float64(maxVal)))
		scale := float32(255 / math.Ldexp(1, int(exp)))
		dst[0] = byte(src[0]*scale + 0.5)
		dst[1] = byte(src[1]*scale + 0.5)
		dst[2] = byte(src[2]*scale + 0.5)
		dst[3] = byte(int(exp) + 128)
	case FormatBGRA8:
		dst[2] = unorm8(src[0])
		dst[1] = unorm8(src[1])
		dst[0] = unorm8(src[2])
		dst[3] = unorm8(src[3])
	case FormatRGBA8:
		dst[0] = unorm8(src[0])
		dst[1] = unorm8(src[1])
		dst[2] = unorm8(src[2])
		dst[3] = unorm8(src[3])
	case FormatRGBA16:
		binary.LittleEndian.PutUint16(dst[0:], unorm16(src[0]))
		binary.LittleEndian.PutUint16(dst[2:], unorm16(src[1]))
		binary.LittleEndian.PutUint16(dst[4:], unorm16(src[2]))
		binary.LittleEndian.PutUint16(dst[6:], unorm16(src[3]))
	case FormatRGBA16F:
		binary.LittleEndian.PutUint16(dst[0:], half.FromFloat32(src[0]).Bits())
		binary.LittleEndian.PutUint16(dst[2:], half.FromFloat32(src[1]).Bits())
		binary.LittleEndian.PutUint16(dst[4:], half.FromFloat32(src[2]).Bits())
		binary.LittleEndian.PutUint16(dst[6:], half.FromFloat32(src[3]).Bits())
	case FormatRGBA32F:
		binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(src[0]))
		binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(src[1]))
		binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(src[2]))
		binary.LittleEndian.PutUint32(dst[12:], math.Float32bits(src[3]))
	default:
		panic("tex: unknown pixel format")
	}
}

// PixelToCanonical decodes one pixel of the given format into [r, g, b, a].
func PixelToCanonical(format Format, src []byte) [4]float32 {
	var px [4]float32
	toCanonical(px[:], format, src)
	return px
}

// PixelFromCanonical encodes [r, g, b, a] into dst as one pixel of the format.
func PixelFromCanonical(px [4]float32, format Format, dst []byte) {
	fromCanonical(dst, format, px[:])
}

// ToCanonical converts the image to a new RGBA32F image, walking every face
// and mip level.
func ToCanonical(src *Image) *Image {
	dst := New(src.Width, src.Height, FormatRGBA32F, src.NumMips, src.NumFaces)
	if src.Format == FormatRGBA32F {
		copy(dst.Data, src.Data)
		return dst
	}

	srcBpp := src.Format.BytesPerPixel()
	var px [4]float32
	si, di := 0, 0
	for p := src.PixelCount(); p > 0; p-- {
		toCanonical(px[:], src.Format, src.Data[si:si+srcBpp])
		binary.LittleEndian.PutUint32(dst.Data[di:], math.Float32bits(px[0]))
		binary.LittleEndian.PutUint32(dst.Data[di+4:], math.Float32bits(px[1]))
		binary.LittleEndian.PutUint32(dst.Data[di+8:], math.Float32bits(px[2]))
		binary.LittleEndian.PutUint32(dst.Data[di+12:], math.Float32bits(px[3]))
		si += srcBpp
		di += 16
	}
	return dst
}

// FromCanonical converts an RGBA32F image to a new image of the target
// format. src must be in RGBA32F format.
func FromCanonical(src *Image, target Format) *Image {
	if src.Format != FormatRGBA32F {
		panic("tex: FromCanonical source is not RGBA32F")
	}
	dst := New(src.Width, src.Height, target, src.NumMips, src.NumFaces)
	if target == FormatRGBA32F {
		copy(dst.Data, src.Data)
		return dst
	}

	dstBpp := target.BytesPerPixel()
	var px [4]float32
	si, di := 0, 0
	for p := src.PixelCount(); p > 0; p-- {
		toCanonical(px[:], FormatRGBA32F, src.Data[si:si+16])
		fromCanonical(dst.Data[di:di+dstBpp], target, px[:])
		si += 16
		di += dstBpp
	}
	return dst
}

// Convert converts the image to the target format, routing through the
// canonical representation when neither endpoint is RGBA32F. When the source
// already has the target format the result is a copy.
func Convert(src *Image, target Format) *Image {
	switch {
	case src.Format == target:
		return src.Copy()
	case src.Format == FormatRGBA32F:
		return FromCanonical(src, target)
	case target == FormatRGBA32F:
		return ToCanonical(src)
	default:
		return FromCanonical(ToCanonical(src), target)
	}
}

// RefOrConvert returns the image itself when it already has the requested
// format, or a converted copy otherwise. The second result reports whether
// the returned image aliases src.
func RefOrConvert(src *Image, format Format) (*Image, bool) {
	if src.Format == format {
		return src.Ref(), true
	}
	return Convert(src, format), false
}

// CanonicalAt reads the RGBA32F pixel starting at byte offset off.
// The buffer is interpreted little-endian, matching on-disk layout.
func CanonicalAt(data []byte, off int) [4]float32 {
	return [4]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(data[off:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[off+12:])),
	}
}

// SetCanonicalAt writes an RGBA32F pixel at byte offset off.
func SetCanonicalAt(data []byte, off int, px [4]float32) {
	binary.LittleEndian.PutUint32(data[off:], math.Float32bits(px[0]))
	binary.LittleEndian.PutUint32(data[off+4:], math.Float32bits(px[1]))
	binary.LittleEndian.PutUint32(data[off+8:], math.Float32bits(px[2]))
	binary.LittleEndian.PutUint32(data[off+12:], math.Float32bits(px[3]))
}
