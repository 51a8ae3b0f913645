// Package ktx reads and writes Khronos KTX (version 1) texture files.
//
// Uncompressed 2D textures and cube-maps with mip chains are supported. Rows,
// faces and mip payloads are padded to the 4-byte unpack alignment the format
// mandates. Both endianness orientations are accepted on read; files are
// always written in the reference orientation.
package ktx

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-cubemap/internal/binio"
	"github.com/mrjoshuak/go-cubemap/tex"
)

// Errors returned by the decoder and encoder.
var (
	ErrBadMagic          = errors.New("ktx: bad magic")
	ErrMalformedHeader   = errors.New("ktx: malformed header")
	ErrUnsupportedFormat = errors.New("ktx: unsupported pixel format")
)

// Magic is the 12-byte KTX 1.1 file identifier.
var Magic = []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x31, 0x31, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

const (
	endianRef         = 0x04030201
	endianRefReversed = 0x01020304

	// unpackAlignment is the row/face/mip payload alignment in bytes.
	unpackAlignment = 4
)

// GL type and format enums used in the header.
const (
	glUnsignedByte  = 0x1401
	glUnsignedShort = 0x1403
	glUnsignedInt   = 0x1405
	glFloat         = 0x1406
	glHalfFloat     = 0x140B

	glRGB  = 0x1907
	glRGBA = 0x1908

	glRGBA32F = 0x8814
	glRGB32F  = 0x8815
	glRGBA16F = 0x881A
	glRGB16F  = 0x881B
	glRGBA16U = 0x8D76
	glRGB16U  = 0x8D77
	glRGBA8U  = 0x8D7C
	glRGB8U   = 0x8D7D
)

type header struct {
	endianness           uint32
	glType               uint32
	glTypeSize           uint32
	glFormat             uint32
	glInternalFormat     uint32
	glBaseInternalFormat uint32
	pixelWidth           uint32
	pixelHeight          uint32
	pixelDepth           uint32
	numArrayElements     uint32
	numFaces             uint32
	numMips              uint32
	bytesKeyValue        uint32
}

var internalToFormat = map[uint32]tex.Format{
	glRGB:     tex.FormatRGB8,
	glRGB8U:   tex.FormatRGB8,
	glRGB16U:  tex.FormatRGB16,
	glRGB16F:  tex.FormatRGB16F,
	glRGB32F:  tex.FormatRGB32F,
	glRGBA:    tex.FormatRGBA8,
	glRGBA8U:  tex.FormatRGBA8,
	glRGBA16U: tex.FormatRGBA16,
	glRGBA16F: tex.FormatRGBA16F,
	glRGBA32F: tex.FormatRGBA32F,
}

type glFormatInfo struct {
	internalFormat uint32
	format         uint32
}

var formatToGL = map[tex.Format]glFormatInfo{
	tex.FormatRGB8:    {glRGB8U, glRGB},
	tex.FormatRGB16:   {glRGB16U, glRGB},
	tex.FormatRGB16F:  {glRGB16F, glRGB},
	tex.FormatRGB32F:  {glRGB32F, glRGB},
	tex.FormatRGBA8:   {glRGBA8U, glRGBA},
	tex.FormatRGBA16:  {glRGBA16U, glRGBA},
	tex.FormatRGBA16F: {glRGBA16F, glRGBA},
	tex.FormatRGBA32F: {glRGBA32F, glRGBA},
}

func glTypeFor(f tex.Format) uint32 {
	switch f.Info().ChannelType {
	case tex.ChannelUint8:
		return glUnsignedByte
	case tex.ChannelUint16:
		return glUnsignedShort
	case tex.ChannelUint32:
		return glUnsignedInt
	case tex.ChannelHalf:
		return glHalfFloat
	default:
		return glFloat
	}
}

// rounding returns the zero padding that brings size to the unpack alignment.
func rounding(size int) int {
	return (unpackAlignment - size%unpackAlignment) % unpackAlignment
}

func bswap32(v uint32) uint32 {
	return v<<24 | v<<8&0x00FF0000 | v>>8&0x0000FF00 | v>>24
}

// Decode reads a KTX image from the stream.
func Decode(rd io.Reader) (*tex.Image, error) {
	r := binio.NewStreamReader(rd)

	magic := make([]byte, len(Magic))
	if err := r.ReadBytesInto(magic); err != nil {
		return nil, fmt.Errorf("ktx: reading magic: %w", err)
	}
	if !bytes.Equal(magic, Magic) {
		return nil, ErrBadMagic
	}

	var h header
	fields := []*uint32{
		&h.endianness, &h.glType, &h.glTypeSize, &h.glFormat,
		&h.glInternalFormat, &h.glBaseInternalFormat,
		&h.pixelWidth, &h.pixelHeight, &h.pixelDepth,
		&h.numArrayElements, &h.numFaces, &h.numMips, &h.bytesKeyValue,
	}
	for _, f := range fields {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("ktx: reading header: %w", err)
		}
		*f = v
	}

	reversed := false
	switch h.endianness {
	case endianRef:
	case endianRefReversed:
		reversed = true
		for _, f := range fields[1:] {
			*f = bswap32(*f)
		}
	default:
		return nil, fmt.Errorf("%w: endianness marker 0x%08x", ErrMalformedHeader, h.endianness)
	}

	if h.numMips == 0 {
		tex.Warnf("ktx: mip count is 0, coercing to 1")
		h.numMips = 1
	}
	if h.numFaces == 0 {
		h.numFaces = 1
	}
	if h.numFaces != 1 && h.numFaces != tex.CubeFaceCount {
		return nil, fmt.Errorf("%w: %d faces", ErrMalformedHeader, h.numFaces)
	}

	format, ok := internalToFormat[h.glInternalFormat]
	if !ok {
		return nil, fmt.Errorf("%w: glInternalFormat 0x%04x", ErrUnsupportedFormat, h.glInternalFormat)
	}

	if err := r.Skip(int(h.bytesKeyValue)); err != nil {
		return nil, fmt.Errorf("ktx: skipping key-value data: %w", err)
	}

	img := tex.New(int(h.pixelWidth), int(h.pixelHeight), format, int(h.numMips), int(h.numFaces))
	offsets := img.MipOffsets()
	bpp := format.BytesPerPixel()

	for mip := 0; mip < img.NumMips; mip++ {
		width := img.MipWidth(mip)
		height := img.MipHeight(mip)
		pitch := width * bpp

		faceSize, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("ktx: reading face size: %w", err)
		}
		if reversed {
			faceSize = bswap32(faceSize)
		}

		pitchRounding := rounding(pitch)
		faceRounding := rounding(int(faceSize))
		mipRounding := rounding(int(faceSize) * img.NumFaces)

		if int(faceSize) != (pitch+pitchRounding)*height {
			tex.Warnf("ktx: stated face size %d does not match %d", faceSize, (pitch+pitchRounding)*height)
		}

		for face := 0; face < img.NumFaces; face++ {
			faceData := img.Data[offsets[face][mip] : offsets[face][mip]+pitch*height]

			if pitchRounding == 0 {
				if err := r.ReadBytesInto(faceData); err != nil {
					return nil, fmt.Errorf("ktx: reading face data: %w", err)
				}
			} else {
				for y := 0; y < height; y++ {
					if err := r.ReadBytesInto(faceData[y*pitch : (y+1)*pitch]); err != nil {
						return nil, fmt.Errorf("ktx: reading row data: %w", err)
					}
					if err := r.Skip(pitchRounding); err != nil {
						return nil, fmt.Errorf("ktx: skipping row padding: %w", err)
					}
				}
			}

			if reversed {
				swapChannelBytes(faceData, int(h.glTypeSize))
			}

			if err := r.Skip(faceRounding); err != nil {
				return nil, fmt.Errorf("ktx: skipping face padding: %w", err)
			}
		}

		if err := r.Skip(mipRounding); err != nil {
			return nil, fmt.Errorf("ktx: skipping mip padding: %w", err)
		}
	}

	return img, nil
}

// swapChannelBytes reverses the byte order of every channel word in place.
func swapChannelBytes(data []byte, wordSize int) {
	switch wordSize {
	case 2:
		for i := 0; i+1 < len(data); i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case 4:
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+3] = data[i+3], data[i]
			data[i+1], data[i+2] = data[i+2], data[i+1]
		}
	}
}

// Encode writes the image as a KTX file. The pixel format must be one of
// tex.ValidFormats(tex.FileTypeKTX).
func Encode(w io.Writer, img *tex.Image) error {
	gl, ok := formatToGL[img.Format]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}

	info := img.Format.Info()
	h := header{
		endianness:           endianRef,
		glType:               glTypeFor(img.Format),
		glTypeSize:           uint32(info.BytesPerPixel / info.NumChannels),
		glFormat:             gl.format,
		glInternalFormat:     gl.internalFormat,
		glBaseInternalFormat: gl.format,
		pixelWidth:           uint32(img.Width),
		pixelHeight:          uint32(img.Height),
		numFaces:             uint32(img.NumFaces),
		numMips:              uint32(img.NumMips),
	}

	sw := binio.NewStreamWriter(w)
	if err := sw.WriteBytes(Magic); err != nil {
		return fmt.Errorf("ktx: writing magic: %w", err)
	}
	for _, f := range []uint32{
		h.endianness, h.glType, h.glTypeSize, h.glFormat,
		h.glInternalFormat, h.glBaseInternalFormat,
		h.pixelWidth, h.pixelHeight, h.pixelDepth,
		h.numArrayElements, h.numFaces, h.numMips, h.bytesKeyValue,
	} {
		if err := sw.WriteUint32(f); err != nil {
			return fmt.Errorf("ktx: writing header: %w", err)
		}
	}

	offsets := img.MipOffsets()
	bpp := img.Format.BytesPerPixel()

	for mip := 0; mip < img.NumMips; mip++ {
		width := img.MipWidth(mip)
		height := img.MipHeight(mip)
		pitch := width * bpp

		pitchRounding := rounding(pitch)
		faceSize := (pitch + pitchRounding) * height
		faceRounding := rounding(faceSize)
		mipRounding := rounding(faceSize * img.NumFaces)

		if err := sw.WriteUint32(uint32(faceSize)); err != nil {
			return fmt.Errorf("ktx: writing face size: %w", err)
		}

		for face := 0; face < img.NumFaces; face++ {
			faceData := img.Data[offsets[face][mip] : offsets[face][mip]+pitch*height]

			if pitchRounding == 0 {
				if err := sw.WriteBytes(faceData); err != nil {
					return fmt.Errorf("ktx: writing face data: %w", err)
				}
			} else {
				for y := 0; y < height; y++ {
					if err := sw.WriteBytes(faceData[y*pitch : (y+1)*pitch]); err != nil {
						return fmt.Errorf("ktx: writing row data: %w", err)
					}
					if err := sw.WriteZeros(pitchRounding); err != nil {
						return fmt.Errorf("ktx: writing row padding: %w", err)
					}
				}
			}

			if err := sw.WriteZeros(faceRounding); err != nil {
				return fmt.Errorf("ktx: writing face padding: %w", err)
			}
		}

		if err := sw.WriteZeros(mipRounding); err != nil {
			return fmt.Errorf("ktx: writing mip padding: %w", err)
		}
	}

	return nil
}
