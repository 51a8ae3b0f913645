// Package tga reads and writes Truevision TGA images.
//
// True-color images at 24 bits (BGR8) and 32 bits (BGRA8) are supported,
// both flat and run-length encoded on read. The encoder writes flat
// true-color data, bottom-up by convention, followed by the TGA 2.0 footer.
package tga

import (
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-cubemap/internal/binio"
	"github.com/mrjoshuak/go-cubemap/tex"
)

// Errors returned by the decoder and encoder.
var (
	ErrMalformedHeader   = errors.New("tga: malformed header")
	ErrUnsupportedFormat = errors.New("tga: unsupported pixel format")
)

// Image type codes.
const (
	typeColorMapped = 1
	typeTrueColor   = 2
	typeGrayscale   = 3
	typeRLEFlag     = 8
)

// Image descriptor bits.
const (
	descAlphaBits   = 0x0F
	descRightToLeft = 0x10
	descTopToBottom = 0x20
)

// footerSignature is the 18-byte TGA 2.0 file signature.
var footerSignature = [18]byte{'T', 'R', 'U', 'E', 'V', 'I', 'S', 'I', 'O', 'N', '-', 'X', 'F', 'I', 'L', 'E', '.', 0}

type header struct {
	idLength        uint8
	colorMapType    uint8
	imageType       uint8
	colorMapOrigin  int16
	colorMapLength  int16
	colorMapDepth   uint8
	xOrigin         int16
	yOrigin         int16
	width           uint16
	height          uint16
	bitsPerPixel    uint8
	imageDescriptor uint8
}

// PlausibleHeader reports whether the first four bytes of a file look like a
// TGA header: a known image type with a matching color-map type. TGA has no
// magic number, so this is the sniffing rule the dispatch layer uses.
func PlausibleHeader(first4 []byte) bool {
	if len(first4) < 3 {
		return false
	}
	colorMapType := first4[1]
	imageType := first4[2]
	switch imageType {
	case typeColorMapped, typeColorMapped | typeRLEFlag:
		return colorMapType == 1
	case typeTrueColor, typeGrayscale, typeTrueColor | typeRLEFlag, typeGrayscale | typeRLEFlag:
		return colorMapType == 0
	}
	return false
}

func readHeader(r *binio.StreamReader) (*header, error) {
	var h header
	var err error
	if h.idLength, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.colorMapType, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.imageType, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.colorMapOrigin, err = r.ReadInt16(); err != nil {
		return nil, err
	}
	if h.colorMapLength, err = r.ReadInt16(); err != nil {
		return nil, err
	}
	if h.colorMapDepth, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.xOrigin, err = r.ReadInt16(); err != nil {
		return nil, err
	}
	if h.yOrigin, err = r.ReadInt16(); err != nil {
		return nil, err
	}
	if h.width, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if h.height, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if h.bitsPerPixel, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if h.imageDescriptor, err = r.ReadByte(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Decode reads a TGA image from the stream. Only true-color images are
// supported; the descriptor's origin bits are applied so the result is
// always top-down, left-to-right.
func Decode(rd io.Reader) (*tex.Image, error) {
	r := binio.NewStreamReader(rd)

	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("tga: reading header: %w", err)
	}

	if h.imageType&3 != typeTrueColor {
		return nil, fmt.Errorf("%w: image type %d is not true-color", ErrUnsupportedFormat, h.imageType)
	}

	var format tex.Format
	switch h.bitsPerPixel {
	case 24:
		format = tex.FormatBGR8
	case 32:
		format = tex.FormatBGRA8
		if h.imageDescriptor&descAlphaBits != 0x8 {
			tex.Warnf("tga: 32-bit image with %d alpha bits", h.imageDescriptor&descAlphaBits)
		}
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedFormat, h.bitsPerPixel)
	}

	// Skip the image ID and any color map.
	skip := int(h.idLength)
	if h.colorMapType&1 != 0 {
		skip += int(h.colorMapLength) * int(h.colorMapDepth) / 8
	}
	if err := r.Skip(skip); err != nil {
		return nil, fmt.Errorf("tga: skipping id/color map: %w", err)
	}

	img := tex.New(int(h.width), int(h.height), format, 1, 1)
	bpp := format.BytesPerPixel()
	numPixels := int(h.width) * int(h.height)

	if h.imageType&typeRLEFlag != 0 {
		// Each packet is an opcode byte N and one pixel; a raw packet is
		// followed by N&0x7F further literal pixels, a run packet repeats
		// its pixel N&0x7F more times. Total pixels per packet: (N&0x7F)+1.
		buf := make([]byte, bpp+1)
		dst := img.Data
		n := 0
		for n < numPixels {
			if err := r.ReadBytesInto(buf); err != nil {
				return nil, fmt.Errorf("tga: reading packet: %w", err)
			}
			count := int(buf[0] & 0x7F)
			if n+count+1 > numPixels {
				return nil, fmt.Errorf("%w: rle packet past end of image", ErrMalformedHeader)
			}

			copy(dst[:bpp], buf[1:])
			dst = dst[bpp:]
			n++

			if buf[0]&0x80 != 0 {
				for i := 0; i < count; i++ {
					copy(dst[:bpp], buf[1:])
					dst = dst[bpp:]
					n++
				}
			} else if count > 0 {
				if err := r.ReadBytesInto(dst[:count*bpp]); err != nil {
					return nil, fmt.Errorf("tga: reading literal pixels: %w", err)
				}
				dst = dst[count*bpp:]
				n += count
			}
		}
	} else {
		if err := r.ReadBytesInto(img.Data); err != nil {
			return nil, fmt.Errorf("tga: reading pixel data: %w", err)
		}
	}

	// Normalize orientation to top-down, left-to-right.
	var ops tex.Op
	if h.imageDescriptor&descRightToLeft != 0 {
		ops |= tex.OpFlipY
	}
	if h.imageDescriptor&descTopToBottom == 0 {
		ops |= tex.OpFlipX
	}
	if ops != 0 {
		img.Transform(tex.TransformArg{Faces: tex.FacePosX, Ops: ops})
	}

	return img, nil
}

// EncodeOptions controls the encoder.
type EncodeOptions struct {
	// TopDown writes rows top-down instead of the default bottom-up order.
	TopDown bool
}

// Encode writes the image as a flat true-color TGA file with the default
// bottom-up row order. When the image carries extra faces or mips only the
// first of each is written, with a warning.
func Encode(w io.Writer, img *tex.Image) error {
	return EncodeWithOptions(w, img, EncodeOptions{})
}

// EncodeWithOptions writes the image as a flat true-color TGA file.
func EncodeWithOptions(w io.Writer, img *tex.Image, opts EncodeOptions) error {
	if !tex.ValidFormat(tex.FileTypeTGA, img.Format) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}
	if img.NumFaces != 1 {
		tex.Warnf("tga: image has %d faces, only the first is saved", img.NumFaces)
	}
	if img.NumMips != 1 {
		tex.Warnf("tga: image has %d mips, only the first is saved", img.NumMips)
	}

	h := header{
		imageType:    typeTrueColor,
		width:        uint16(img.Width),
		height:       uint16(img.Height),
		bitsPerPixel: uint8(img.Format.BytesPerPixel() * 8),
	}
	if img.Format.HasAlpha() {
		h.imageDescriptor = 0x8
	}
	if opts.TopDown {
		h.imageDescriptor |= descTopToBottom
	}

	sw := binio.NewStreamWriter(w)
	writes := []func() error{
		func() error { return sw.WriteByte(h.idLength) },
		func() error { return sw.WriteByte(h.colorMapType) },
		func() error { return sw.WriteByte(h.imageType) },
		func() error { return sw.WriteInt16(h.colorMapOrigin) },
		func() error { return sw.WriteInt16(h.colorMapLength) },
		func() error { return sw.WriteByte(h.colorMapDepth) },
		func() error { return sw.WriteInt16(h.xOrigin) },
		func() error { return sw.WriteInt16(h.yOrigin) },
		func() error { return sw.WriteUint16(h.width) },
		func() error { return sw.WriteUint16(h.height) },
		func() error { return sw.WriteByte(h.bitsPerPixel) },
		func() error { return sw.WriteByte(h.imageDescriptor) },
	}
	for _, f := range writes {
		if err := f(); err != nil {
			return fmt.Errorf("tga: writing header: %w", err)
		}
	}

	pitch := img.Width * img.Format.BytesPerPixel()
	if opts.TopDown {
		for y := 0; y < img.Height; y++ {
			if err := sw.WriteBytes(img.Data[y*pitch : (y+1)*pitch]); err != nil {
				return fmt.Errorf("tga: writing pixel data: %w", err)
			}
		}
	} else {
		for y := img.Height - 1; y >= 0; y-- {
			if err := sw.WriteBytes(img.Data[y*pitch : (y+1)*pitch]); err != nil {
				return fmt.Errorf("tga: writing pixel data: %w", err)
			}
		}
	}

	// TGA 2.0 footer: extension and developer offsets, then the signature.
	if err := sw.WriteUint32(0); err != nil {
		return fmt.Errorf("tga: writing footer: %w", err)
	}
	if err := sw.WriteUint32(0); err != nil {
		return fmt.Errorf("tga: writing footer: %w", err)
	}
	if err := sw.WriteBytes(footerSignature[:]); err != nil {
		return fmt.Errorf("tga: writing footer: %w", err)
	}
	return nil
}
