// Package hdr reads and writes Radiance RGBE (.hdr) images.
//
// The decoder handles both flat files and the adaptive run-length encoding
// used for scanlines between 8 and 32767 pixels wide. The encoder writes
// flat (unencoded) scanlines. The pixel payload is always RGBE; images are
// single-face, single-mip.
package hdr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-cubemap/tex"
)

// Errors returned by the decoder and encoder.
var (
	ErrBadMagic          = errors.New("hdr: bad magic")
	ErrMalformedHeader   = errors.New("hdr: malformed header")
	ErrUnsupportedFormat = errors.New("hdr: unsupported pixel format")
)

// MagicLine is the signature the first header line must start with.
const MagicLine = "#?RADIANCE"

const formatLine = "FORMAT=32-bit_rle_rgbe"

// maxHeaderLines bounds the number of header lines scanned before the blank
// terminator must appear.
const maxHeaderLines = 20

// Header carries the recognized Radiance header values.
type Header struct {
	Gamma    float64
	Exposure float64
}

// Decode reads a Radiance HDR image from the stream. The returned header
// carries the GAMMA and EXPOSURE values when present (both default to 1).
func Decode(rd io.Reader) (*tex.Image, *Header, error) {
	br := bufio.NewReader(rd)

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("hdr: reading magic: %w", err)
	}
	if !strings.HasPrefix(line, MagicLine) {
		return nil, nil, ErrBadMagic
	}

	h := &Header{Gamma: 1, Exposure: 1}
	formatDefined := false
	for i := 0; i < maxHeaderLines; i++ {
		line, err = br.ReadString('\n')
		if err != nil {
			return nil, nil, fmt.Errorf("hdr: reading header: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			break
		}
		switch {
		case line == formatLine:
			formatDefined = true
		case strings.HasPrefix(line, "GAMMA="):
			if v, err := strconv.ParseFloat(line[len("GAMMA="):], 64); err == nil {
				h.Gamma = v
			}
		case strings.HasPrefix(line, "EXPOSURE="):
			if v, err := strconv.ParseFloat(line[len("EXPOSURE="):], 64); err == nil {
				h.Exposure = v
			}
		}
	}
	if !formatDefined {
		tex.Warnf("hdr: header is missing the FORMAT line")
	}

	// The resolution line follows the blank header terminator.
	line, err = br.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("hdr: reading resolution: %w", err)
	}
	var width, height int
	if _, err := fmt.Sscanf(line, "-Y %d +X %d", &height, &width); err != nil {
		return nil, nil, fmt.Errorf("%w: resolution line %q", ErrMalformedHeader, strings.TrimSpace(line))
	}
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: resolution %dx%d", ErrMalformedHeader, width, height)
	}

	img := tex.New(width, height, tex.FormatRGBE, 1, 1)

	// The first four payload bytes decide between flat and RLE layout.
	var intro [4]byte
	if _, err := io.ReadFull(br, intro[:]); err != nil {
		return nil, nil, fmt.Errorf("hdr: reading pixel data: %w", err)
	}

	if width < 8 || width > 0x7fff || intro[0] != 2 || intro[1] != 2 || intro[2]&0x80 != 0 {
		// Flat file; the intro bytes are the first pixel.
		copy(img.Data, intro[:])
		if _, err := io.ReadFull(br, img.Data[4:]); err != nil {
			return nil, nil, fmt.Errorf("hdr: reading pixel data: %w", err)
		}
		return img, h, nil
	}

	// Adaptive RLE: every scanline stores its four channel planes in
	// sequence, each as a series of run/literal packets.
	scanline := make([]byte, width*4)
	dst := img.Data
	for y := 0; ; y++ {
		if got := int(intro[2])<<8 | int(intro[3]); got != width {
			return nil, nil, fmt.Errorf("%w: scanline width %d, want %d", ErrMalformedHeader, got, width)
		}

		for ch := 0; ch < 4; ch++ {
			plane := scanline[ch*width : (ch+1)*width]
			pos := 0
			for pos < len(plane) {
				var op [2]byte
				if _, err := io.ReadFull(br, op[:]); err != nil {
					return nil, nil, fmt.Errorf("hdr: reading scanline: %w", err)
				}
				if op[0] > 128 {
					count := int(op[0]) - 128
					if count > len(plane)-pos {
						return nil, nil, fmt.Errorf("%w: run past end of scanline", ErrMalformedHeader)
					}
					for i := 0; i < count; i++ {
						plane[pos] = op[1]
						pos++
					}
				} else {
					count := int(op[0])
					if count == 0 || count > len(plane)-pos {
						return nil, nil, fmt.Errorf("%w: literal past end of scanline", ErrMalformedHeader)
					}
					plane[pos] = op[1]
					pos++
					if count > 1 {
						if _, err := io.ReadFull(br, plane[pos:pos+count-1]); err != nil {
							return nil, nil, fmt.Errorf("hdr: reading scanline: %w", err)
						}
						pos += count - 1
					}
				}
			}
		}

		// Interleave the planes into RGBE pixels.
		for x := 0; x < width; x++ {
			dst[0] = scanline[x]
			dst[1] = scanline[x+width]
			dst[2] = scanline[x+2*width]
			dst[3] = scanline[x+3*width]
			dst = dst[4:]
		}

		if y == height-1 {
			break
		}
		if _, err := io.ReadFull(br, intro[:]); err != nil {
			return nil, nil, fmt.Errorf("hdr: reading scanline intro: %w", err)
		}
	}

	return img, h, nil
}

// Encode writes the image as a flat (non-RLE) Radiance HDR file. The image
// must be in RGBE format; when it carries extra faces or mips only the first
// of each is written, with a warning.
func Encode(w io.Writer, img *tex.Image) error {
	if img.Format != tex.FormatRGBE {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}
	if img.NumFaces != 1 {
		tex.Warnf("hdr: image has %d faces, only the first is saved", img.NumFaces)
	}
	if img.NumMips != 1 {
		tex.Warnf("hdr: image has %d mips, only the first is saved", img.NumMips)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n", MagicLine)
	fmt.Fprintf(bw, "# Written by go-cubemap.\n")
	fmt.Fprintf(bw, "%s\n", formatLine)
	fmt.Fprintf(bw, "EXPOSURE=%g\n", 1.0)
	fmt.Fprintf(bw, "\n")
	fmt.Fprintf(bw, "-Y %d +X %d\n", img.Height, img.Width)

	pitch := img.Width * 4
	for y := 0; y < img.Height; y++ {
		if _, err := bw.Write(img.Data[y*pitch : (y+1)*pitch]); err != nil {
			return fmt.Errorf("hdr: writing pixel data: %w", err)
		}
	}
	return bw.Flush()
}
