// Package texio loads and saves texture images by file path, dispatching to
// the container codecs: DDS and KTX by magic number, HDR by its signature
// line, TGA by header plausibility (it has no magic). Gzip-wrapped container
// files are detected and inflated transparently on load.
package texio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/mrjoshuak/go-cubemap/dds"
	"github.com/mrjoshuak/go-cubemap/hdr"
	"github.com/mrjoshuak/go-cubemap/ktx"
	"github.com/mrjoshuak/go-cubemap/tex"
	"github.com/mrjoshuak/go-cubemap/tga"
)

// ErrUnknownFileType is returned when no codec recognizes the input.
var ErrUnknownFileType = errors.New("texio: unknown file type")

// ErrInvalidSaveFormat is returned when the image's pixel format is not in
// the target container's legal set.
var ErrInvalidSaveFormat = errors.New("texio: pixel format not valid for file type")

// hdrMagic is the first four bytes of the Radiance signature line.
var hdrMagic = []byte("#?RA")

// gzipMagic is the two-byte gzip member header.
var gzipMagic = []byte{0x1F, 0x8B}

// Load reads a texture image from a file, choosing the codec by content.
// convertTo, when not FormatUnknown, converts the result to that pixel
// format before returning.
func Load(path string, convertTo tex.Format) (*tex.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texio: %w", err)
	}
	defer f.Close()

	img, err := DecodeReader(f)
	if err != nil {
		return nil, err
	}
	if convertTo != tex.FormatUnknown && img.Format != convertTo {
		img = tex.Convert(img, convertTo)
	}
	return img, nil
}

// DecodeReader reads a texture image from a seekable stream, choosing the
// codec by content.
func DecodeReader(rs io.ReadSeeker) (*tex.Image, error) {
	var magic [4]byte
	if _, err := io.ReadFull(rs, magic[:]); err != nil {
		return nil, fmt.Errorf("texio: reading magic: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("texio: seek: %w", err)
	}

	switch {
	case bytes.Equal(magic[:2], gzipMagic):
		return decodeGzip(rs)
	case binaryMagic(magic[:]) == dds.Magic:
		return dds.Decode(rs)
	case bytes.Equal(magic[:], hdrMagic):
		img, _, err := hdr.Decode(rs)
		return img, err
	case bytes.Equal(magic[:], ktx.Magic[:4]):
		return ktx.Decode(rs)
	case tga.PlausibleHeader(magic[:]):
		return tga.Decode(rs)
	}
	return nil, ErrUnknownFileType
}

// decodeGzip inflates a gzip-wrapped container into memory and dispatches on
// the inflated content.
func decodeGzip(rs io.Reader) (*tex.Image, error) {
	zr, err := gzip.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("texio: gzip: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("texio: gzip: %w", err)
	}
	return DecodeReader(bytes.NewReader(raw))
}

func binaryMagic(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// SaveOptions controls Save.
type SaveOptions struct {
	// ConvertTo converts the image to this pixel format before encoding.
	// FormatUnknown leaves the image format unchanged.
	ConvertTo tex.Format
	// Gzip wraps the written container in a gzip stream and appends ".gz"
	// to the file name.
	Gzip bool
}

// Save writes the image to pathStem with the container's extension appended.
// The pixel format (after the optional conversion) must be in the
// container's legal set, or the save is refused.
func Save(img *tex.Image, pathStem string, fileType tex.FileType, opts SaveOptions) error {
	out := img
	if opts.ConvertTo != tex.FormatUnknown && img.Format != opts.ConvertTo {
		out = tex.Convert(img, opts.ConvertTo)
	}

	if !tex.ValidFormat(fileType, out.Format) {
		tex.Warnf("texio: cannot save %s data as %s; valid formats: %v",
			out.Format, fileType, tex.ValidFormats(fileType))
		return fmt.Errorf("%w: %s as %s", ErrInvalidSaveFormat, out.Format, fileType)
	}

	path := pathStem + fileType.Ext()
	if opts.Gzip {
		path += ".gz"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("texio: %w", err)
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if opts.Gzip {
		zw = gzip.NewWriter(f)
		w = zw
	}

	encodeErr := encode(w, out, fileType)
	if zw != nil {
		if err := zw.Close(); err != nil && encodeErr == nil {
			encodeErr = fmt.Errorf("texio: gzip: %w", err)
		}
	}
	if err := f.Close(); err != nil && encodeErr == nil {
		encodeErr = fmt.Errorf("texio: %w", err)
	}
	if encodeErr != nil {
		os.Remove(path)
	}
	return encodeErr
}

func encode(w io.Writer, img *tex.Image, fileType tex.FileType) error {
	switch fileType {
	case tex.FileTypeDDS:
		return dds.Encode(w, img)
	case tex.FileTypeKTX:
		return ktx.Encode(w, img)
	case tex.FileTypeTGA:
		return tga.Encode(w, img)
	case tex.FileTypeHDR:
		return hdr.Encode(w, img)
	}
	return fmt.Errorf("texio: unknown file type %d", fileType)
}
