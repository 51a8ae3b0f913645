// Package tex provides a pixel-format-agnostic in-memory texture image model
// with mip-chains and cube-map face-stacks, per-pixel format conversion
// through a canonical linear RGBA32F representation, and in-place geometric
// operations (rotate, flip, resize, mip generation, gamma, clamp).
package tex

// Format identifies a concrete pixel layout: channel order, channel count,
// bit depth and numeric encoding.
type Format uint8

// Supported pixel formats. FormatRGBA32F is the canonical intermediate
// through which every many-to-many conversion is routed.
const (
	FormatUnknown Format = iota
	FormatBGR8
	FormatRGB8
	FormatRGB16
	FormatRGB16F
	FormatRGB32F
	FormatRGBE
	FormatBGRA8
	FormatRGBA8
	FormatRGBA16
	FormatRGBA16F
	FormatRGBA32F
)

// ChannelType describes the numeric encoding of a single channel.
type ChannelType uint8

// Channel encodings.
const (
	ChannelUint8 ChannelType = iota
	ChannelUint16
	ChannelUint32
	ChannelHalf
	ChannelFloat
)

// FormatInfo describes the memory layout of a pixel format.
type FormatInfo struct {
	BytesPerPixel int
	NumChannels   int
	HasAlpha      bool
	ChannelType   ChannelType
}

var formatInfo = [FormatRGBA32F + 1]FormatInfo{
	FormatBGR8:    {3, 3, false, ChannelUint8},
	FormatRGB8:    {3, 3, false, ChannelUint8},
	FormatRGB16:   {6, 3, false, ChannelUint16},
	FormatRGB16F:  {6, 3, false, ChannelHalf},
	FormatRGB32F:  {12, 3, false, ChannelFloat},
	FormatRGBE:    {4, 4, false, ChannelUint8},
	FormatBGRA8:   {4, 4, true, ChannelUint8},
	FormatRGBA8:   {4, 4, true, ChannelUint8},
	FormatRGBA16:  {8, 4, true, ChannelUint16},
	FormatRGBA16F: {8, 4, true, ChannelHalf},
	FormatRGBA32F: {16, 4, true, ChannelFloat},
	FormatUnknown: {},
}

var formatName = [FormatRGBA32F + 1]string{
	FormatBGR8:    "BGR8",
	FormatRGB8:    "RGB8",
	FormatRGB16:   "RGB16",
	FormatRGB16F:  "RGB16F",
	FormatRGB32F:  "RGB32F",
	FormatRGBE:    "RGBE",
	FormatBGRA8:   "BGRA8",
	FormatRGBA8:   "RGBA8",
	FormatRGBA16:  "RGBA16",
	FormatRGBA16F: "RGBA16F",
	FormatRGBA32F: "RGBA32F",
	FormatUnknown: "<unknown>",
}

// Info returns the layout description of the format.
func (f Format) Info() FormatInfo {
	if f > FormatRGBA32F {
		return formatInfo[FormatUnknown]
	}
	return formatInfo[f]
}

// BytesPerPixel returns the storage size of one pixel.
func (f Format) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// HasAlpha reports whether the format stores an alpha channel.
func (f Format) HasAlpha() bool {
	return f.Info().HasAlpha
}

// String returns the format name.
func (f Format) String() string {
	if f > FormatRGBA32F {
		return formatName[FormatUnknown]
	}
	return formatName[f]
}

// FileType identifies a container file format.
type FileType uint8

// Supported container file types.
const (
	FileTypeDDS FileType = iota
	FileTypeKTX
	FileTypeTGA
	FileTypeHDR
)

var fileTypeExt = [...]string{
	FileTypeDDS: ".dds",
	FileTypeKTX: ".ktx",
	FileTypeTGA: ".tga",
	FileTypeHDR: ".hdr",
}

var fileTypeName = [...]string{
	FileTypeDDS: "DDS",
	FileTypeKTX: "KTX",
	FileTypeTGA: "TGA",
	FileTypeHDR: "HDR",
}

// Ext returns the filename extension for the file type, including the dot.
func (ft FileType) Ext() string {
	if int(ft) >= len(fileTypeExt) {
		return ""
	}
	return fileTypeExt[ft]
}

// String returns the file type name.
func (ft FileType) String() string {
	if int(ft) >= len(fileTypeName) {
		return "<unknown>"
	}
	return fileTypeName[ft]
}

var ddsValidFormats = []Format{FormatBGR8, FormatBGRA8, FormatRGBA16, FormatRGBA16F, FormatRGBA32F}
var ktxValidFormats = []Format{FormatRGB8, FormatRGB16, FormatRGB16F, FormatRGB32F, FormatRGBA8, FormatRGBA16, FormatRGBA16F, FormatRGBA32F}
var tgaValidFormats = []Format{FormatBGR8, FormatBGRA8}
var hdrValidFormats = []Format{FormatRGBE}

// ValidFormats returns the pixel formats a container can store, in preference
// order. The returned slice must not be modified.
func ValidFormats(ft FileType) []Format {
	switch ft {
	case FileTypeDDS:
		return ddsValidFormats
	case FileTypeKTX:
		return ktxValidFormats
	case FileTypeTGA:
		return tgaValidFormats
	case FileTypeHDR:
		return hdrValidFormats
	}
	return nil
}

// ValidFormat reports whether the container can store the pixel format.
func ValidFormat(ft FileType, f Format) bool {
	for _, v := range ValidFormats(ft) {
		if v == f {
			return true
		}
	}
	return false
}
