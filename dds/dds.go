// Package dds reads and writes DirectDraw Surface (DDS) texture files.
//
// Uncompressed 2D textures and cube-maps with mip chains are supported, in
// the pixel formats BGR8, BGRA8, RGBA16, RGBA16F and RGBA32F. The 16- and
// 32-bit-per-channel formats use the DX10 extension header with a DXGI
// format code; the 8-bit formats use the legacy pixel-format record.
package dds

import (
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-cubemap/internal/binio"
	"github.com/mrjoshuak/go-cubemap/tex"
)

// Errors returned by the decoder and encoder.
var (
	ErrBadMagic          = errors.New("dds: bad magic")
	ErrMalformedHeader   = errors.New("dds: malformed header")
	ErrUnsupportedFormat = errors.New("dds: unsupported pixel format")
)

// Magic is the four-byte file signature "DDS ".
const Magic = 0x20534444

const (
	headerSize     = 124
	dx10HeaderSize = 20
)

// Header flags.
const (
	flagCaps        = 0x00000001
	flagHeight      = 0x00000002
	flagWidth       = 0x00000004
	flagPitch       = 0x00000008
	flagPixelFormat = 0x00001000
	flagMipMapCount = 0x00020000

	requiredFlags = flagCaps | flagHeight | flagWidth | flagPixelFormat
)

// Pixel format flags.
const (
	pfAlphaPixels = 0x00000001
	pfFourCC      = 0x00000004
	pfRGB         = 0x00000040
	pfRGBA        = pfRGB | pfAlphaPixels

	// Internal bit-count markers used to key the legacy format table.
	pfBitCount24 = 0x00100000
	pfBitCount32 = 0x00200000
	pfBitCount48 = 0x00400000
)

// Caps flags.
const (
	capsComplex = 0x00000008
	capsTexture = 0x00001000
	capsMipMap  = 0x00400000

	caps2Cubemap  = 0x00000200
	caps2AllFaces = 0x0000FC00
)

// Legacy D3D format codes.
const (
	d3dfmtR8G8B8        = 20
	d3dfmtA8R8G8B8      = 21
	d3dfmtA8B8G8R8      = 32
	d3dfmtA16B16G16R16  = 36
	d3dfmtA16B16G16R16F = 113
	d3dfmtA32B32G32R32F = 116
)

// DXGI format codes used by the DX10 extension.
const (
	dxgiFormatR32G32B32A32Float = 2
	dxgiFormatR16G16B16A16Float = 10
	dxgiFormatR16G16B16A16Uint  = 12
)

const (
	fourccDX10 = 0x30315844 // "DX10"

	resourceDimensionTexture2D = 3
	miscTextureCube            = 0x4
)

type pixelFormat struct {
	size        uint32
	flags       uint32
	fourcc      uint32
	rgbBitCount uint32
	rBitMask    uint32
	gBitMask    uint32
	bBitMask    uint32
	aBitMask    uint32
}

type header struct {
	size              uint32
	flags             uint32
	height            uint32
	width             uint32
	pitchOrLinearSize uint32
	depth             uint32
	mipMapCount       uint32
	reserved1         [11]uint32
	pixelFormat       pixelFormat
	caps              uint32
	caps2             uint32
	caps3             uint32
	caps4             uint32
	reserved2         uint32
}

type headerDX10 struct {
	dxgiFormat        uint32
	resourceDimension uint32
	miscFlags         uint32
	arraySize         uint32
	miscFlags2        uint32
}

var dxgiToFormat = map[uint32]tex.Format{
	dxgiFormatR16G16B16A16Uint:  tex.FormatRGBA16,
	dxgiFormatR16G16B16A16Float: tex.FormatRGBA16F,
	dxgiFormatR32G32B32A32Float: tex.FormatRGBA32F,
}

var formatToDxgi = map[tex.Format]uint32{
	tex.FormatRGBA16:  dxgiFormatR16G16B16A16Uint,
	tex.FormatRGBA16F: dxgiFormatR16G16B16A16Float,
	tex.FormatRGBA32F: dxgiFormatR32G32B32A32Float,
}

// legacyFormats keys on either a fourcc or the pixel-format flags combined
// with the bit-count marker.
var legacyFormats = map[uint32]tex.Format{
	d3dfmtR8G8B8:          tex.FormatBGR8,
	d3dfmtA8R8G8B8:        tex.FormatBGRA8,
	d3dfmtA16B16G16R16:    tex.FormatRGBA16,
	d3dfmtA16B16G16R16F:   tex.FormatRGBA16F,
	d3dfmtA32B32G32R32F:   tex.FormatRGBA32F,
	pfBitCount24 | pfRGB:  tex.FormatBGR8,
	pfBitCount32 | pfRGBA: tex.FormatBGRA8,
	pfBitCount48 | pfRGB:  tex.FormatRGB16,
}

// encodePixelFormat returns the pixel-format record written for a format.
func encodePixelFormat(f tex.Format) pixelFormat {
	switch f {
	case tex.FormatBGR8:
		return pixelFormat{32, pfRGB, d3dfmtR8G8B8, 24, 0x00ff0000, 0x0000ff00, 0x000000ff, 0}
	case tex.FormatBGRA8:
		return pixelFormat{32, pfRGBA, d3dfmtA8B8G8R8, 32, 0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000}
	case tex.FormatRGBA16, tex.FormatRGBA16F:
		return pixelFormat{32, pfFourCC, fourccDX10, 64, 0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000}
	default: // FormatRGBA32F
		return pixelFormat{32, pfFourCC, fourccDX10, 128, 0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000}
	}
}

func readHeader(r *binio.StreamReader) (*header, error) {
	var h header
	fields := []*uint32{
		&h.size, &h.flags, &h.height, &h.width, &h.pitchOrLinearSize,
		&h.depth, &h.mipMapCount,
		&h.reserved1[0], &h.reserved1[1], &h.reserved1[2], &h.reserved1[3],
		&h.reserved1[4], &h.reserved1[5], &h.reserved1[6], &h.reserved1[7],
		&h.reserved1[8], &h.reserved1[9], &h.reserved1[10],
		&h.pixelFormat.size, &h.pixelFormat.flags, &h.pixelFormat.fourcc,
		&h.pixelFormat.rgbBitCount, &h.pixelFormat.rBitMask, &h.pixelFormat.gBitMask,
		&h.pixelFormat.bBitMask, &h.pixelFormat.aBitMask,
		&h.caps, &h.caps2, &h.caps3, &h.caps4, &h.reserved2,
	}
	for _, f := range fields {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("dds: reading header: %w", err)
		}
		*f = v
	}
	return &h, nil
}

// Decode reads a DDS image from the stream. The reader must be positioned at
// the magic number; seeking is required for the DX10 phantom-header recovery.
func Decode(rs io.ReadSeeker) (*tex.Image, error) {
	r := binio.NewStreamReader(rs)

	magic, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("dds: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	hasDX10 := h.pixelFormat.fourcc == fourccDX10 && h.pixelFormat.flags&pfFourCC != 0
	var dx10 headerDX10
	if hasDX10 {
		fields := []*uint32{&dx10.dxgiFormat, &dx10.resourceDimension, &dx10.miscFlags, &dx10.arraySize, &dx10.miscFlags2}
		for _, f := range fields {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("dds: reading dx10 header: %w", err)
			}
			*f = v
		}
	}

	if h.size != headerSize {
		return nil, fmt.Errorf("%w: header size %d", ErrMalformedHeader, h.size)
	}
	if h.flags&requiredFlags != requiredFlags {
		return nil, fmt.Errorf("%w: flags 0x%08x", ErrMalformedHeader, h.flags)
	}
	if h.caps&capsTexture == 0 {
		return nil, fmt.Errorf("%w: caps 0x%08x", ErrMalformedHeader, h.caps)
	}
	if h.mipMapCount == 0 {
		tex.Warnf("dds: mipmap count is 0, coercing to 1")
		h.mipMapCount = 1
	}

	isCubemap := h.caps2&caps2Cubemap != 0
	if isCubemap && h.caps2&caps2AllFaces != caps2AllFaces {
		return nil, fmt.Errorf("%w: partial cubemap", ErrMalformedHeader)
	}

	format := tex.FormatUnknown
	if hasDX10 {
		if f, ok := dxgiToFormat[dx10.dxgiFormat]; ok {
			format = f
		}
	} else {
		var bitCountFlag uint32
		switch h.pixelFormat.rgbBitCount {
		case 24:
			bitCountFlag = pfBitCount24
		case 32:
			bitCountFlag = pfBitCount32
		case 48:
			bitCountFlag = pfBitCount48
		}

		key := h.pixelFormat.flags | bitCountFlag
		if h.pixelFormat.flags&pfFourCC != 0 {
			key = h.pixelFormat.fourcc
		}
		if f, ok := legacyFormats[key]; ok {
			format = f
		}
	}

	if format == tex.FormatUnknown {
		// Last resort: guess by pixel size among the formats DDS can store.
		bytesPerPixel := int(h.pixelFormat.rgbBitCount / 8)
		for _, f := range tex.ValidFormats(tex.FileTypeDDS) {
			if f.BytesPerPixel() == bytesPerPixel {
				format = f
			}
		}
		if format == tex.FormatUnknown {
			return nil, ErrUnsupportedFormat
		}
		tex.Warnf("dds: pixel format unknown, guessing %s", format)
	}

	numFaces := 1
	if isCubemap {
		numFaces = tex.CubeFaceCount
	}

	img := tex.New(int(h.width), int(h.height), format, int(h.mipMapCount), numFaces)
	dataSize := int64(img.DataSize())

	// Some encoders declare a DX10 fourcc but write the pixel payload where
	// the extension header should be. Detect by comparing the remaining file
	// size with the expected payload and rewind over the phantom header.
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("dds: seek: %w", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("dds: seek: %w", err)
	}
	if hasDX10 && end-pos == dataSize-dx10HeaderSize {
		pos -= dx10HeaderSize
	}
	if _, err := rs.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("dds: seek: %w", err)
	}

	if err := r.ReadBytesInto(img.Data); err != nil {
		return nil, fmt.Errorf("dds: reading pixel data: %w", err)
	}
	return img, nil
}

// Encode writes the image as a DDS file. The pixel format must be one of
// tex.ValidFormats(tex.FileTypeDDS).
func Encode(w io.Writer, img *tex.Image) error {
	if !tex.ValidFormat(tex.FileTypeDDS, img.Format) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}

	pf := encodePixelFormat(img.Format)
	hasMips := img.NumMips > 1
	isCubemap := img.NumFaces == tex.CubeFaceCount

	var h header
	h.size = headerSize
	h.flags = requiredFlags | flagPitch
	if hasMips {
		h.flags |= flagMipMapCount
	}
	h.height = uint32(img.Height)
	h.width = uint32(img.Width)
	h.pitchOrLinearSize = uint32(img.Width * img.Format.BytesPerPixel())
	h.mipMapCount = uint32(img.NumMips)
	h.pixelFormat = pf
	h.caps = capsTexture
	if hasMips {
		h.caps |= capsMipMap
	}
	if hasMips || img.NumFaces > 1 {
		h.caps |= capsComplex
	}
	if isCubemap {
		h.caps2 = caps2Cubemap | caps2AllFaces
	}

	sw := binio.NewStreamWriter(w)
	if err := sw.WriteUint32(Magic); err != nil {
		return fmt.Errorf("dds: writing magic: %w", err)
	}

	fields := []uint32{
		h.size, h.flags, h.height, h.width, h.pitchOrLinearSize,
		h.depth, h.mipMapCount,
		h.reserved1[0], h.reserved1[1], h.reserved1[2], h.reserved1[3],
		h.reserved1[4], h.reserved1[5], h.reserved1[6], h.reserved1[7],
		h.reserved1[8], h.reserved1[9], h.reserved1[10],
		h.pixelFormat.size, h.pixelFormat.flags, h.pixelFormat.fourcc,
		h.pixelFormat.rgbBitCount, h.pixelFormat.rBitMask, h.pixelFormat.gBitMask,
		h.pixelFormat.bBitMask, h.pixelFormat.aBitMask,
		h.caps, h.caps2, h.caps3, h.caps4, h.reserved2,
	}
	for _, f := range fields {
		if err := sw.WriteUint32(f); err != nil {
			return fmt.Errorf("dds: writing header: %w", err)
		}
	}

	if pf.fourcc == fourccDX10 {
		dx10 := headerDX10{
			dxgiFormat:        formatToDxgi[img.Format],
			resourceDimension: resourceDimensionTexture2D,
			arraySize:         1,
		}
		if isCubemap {
			dx10.miscFlags = miscTextureCube
		}
		for _, f := range []uint32{dx10.dxgiFormat, dx10.resourceDimension, dx10.miscFlags, dx10.arraySize, dx10.miscFlags2} {
			if err := sw.WriteUint32(f); err != nil {
				return fmt.Errorf("dds: writing dx10 header: %w", err)
			}
		}
	}

	if err := sw.WriteBytes(img.Data); err != nil {
		return fmt.Errorf("dds: writing pixel data: %w", err)
	}
	return nil
}
