package hdr

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/mrjoshuak/go-cubemap/tex"
)

func TestDecodeFlat4x2(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("\n")
	buf.WriteString("-Y 2 +X 4\n")
	for i := 0; i < 8; i++ {
		buf.Write([]byte{128, 128, 128, 128})
	}

	img, h, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if img.Format != tex.FormatRGBE || img.Width != 4 || img.Height != 2 {
		t.Fatalf("metadata: format=%s %dx%d", img.Format, img.Width, img.Height)
	}
	if img.NumFaces != 1 || img.NumMips != 1 {
		t.Fatalf("faces=%d mips=%d", img.NumFaces, img.NumMips)
	}
	if h.Gamma != 1 || h.Exposure != 1 {
		t.Fatalf("header gamma=%v exposure=%v", h.Gamma, h.Exposure)
	}

	px := tex.PixelToCanonical(tex.FormatRGBE, img.Data[:4])
	want := [4]float32{0.5, 0.5, 0.5, 1}
	for c := 0; c < 4; c++ {
		if math.Abs(float64(px[c]-want[c])) > 1.0/128 {
			t.Fatalf("channel %d: %v, want %v", c, px[c], want[c])
		}
	}
}

func TestDecodeHeaderValues(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("# a comment\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("GAMMA=2.2\n")
	buf.WriteString("EXPOSURE=0.5\n")
	buf.WriteString("\n")
	buf.WriteString("-Y 1 +X 4\n")
	buf.Write(make([]byte, 16))

	_, h, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.Gamma != 2.2 || h.Exposure != 0.5 {
		t.Fatalf("gamma=%v exposure=%v", h.Gamma, h.Exposure)
	}
}

// rleScanline writes one adaptive-RLE scanline for the given RGBE pixels.
func rleScanline(buf *bytes.Buffer, pixels [][4]byte) {
	width := len(pixels)
	buf.Write([]byte{2, 2, byte(width >> 8), byte(width)})
	for ch := 0; ch < 4; ch++ {
		// One literal packet carrying the whole plane.
		buf.WriteByte(byte(width))
		for _, px := range pixels {
			buf.WriteByte(px[ch])
		}
	}
}

func TestDecodeRLELiterals(t *testing.T) {
	const width = 8
	var pixels [][4]byte
	for i := 0; i < width; i++ {
		pixels = append(pixels, [4]byte{byte(10 + i), byte(20 + i), byte(30 + i), 128})
	}

	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("\n")
	buf.WriteString("-Y 2 +X 8\n")
	rleScanline(&buf, pixels)
	rleScanline(&buf, pixels)

	img, _, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 2; y++ {
		for x := 0; x < width; x++ {
			off := (y*width + x) * 4
			got := [4]byte{img.Data[off], img.Data[off+1], img.Data[off+2], img.Data[off+3]}
			if got != pixels[x] {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, pixels[x])
			}
		}
	}
}

func TestDecodeRLERuns(t *testing.T) {
	const width = 16
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\n")
	buf.WriteString("FORMAT=32-bit_rle_rgbe\n")
	buf.WriteString("\n")
	buf.WriteString("-Y 1 +X 16\n")

	buf.Write([]byte{2, 2, 0, 16})
	for ch := 0; ch < 4; ch++ {
		// A 16-long run: opcode 128+16, then the repeated byte.
		buf.Write([]byte{128 + 16, byte(50 + ch)})
	}

	img, _, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	for x := 0; x < width; x++ {
		off := x * 4
		if img.Data[off] != 50 || img.Data[off+1] != 51 || img.Data[off+2] != 52 || img.Data[off+3] != 53 {
			t.Fatalf("pixel %d = %v", x, img.Data[off:off+4])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	src := tex.New(16, 4, tex.FormatRGBE, 1, 1)
	for i := range src.Data {
		src.Data[i] = byte(i*3 + 40)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	got, _, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 16 || got.Height != 4 || got.Format != tex.FormatRGBE {
		t.Fatalf("metadata: %dx%d %s", got.Width, got.Height, got.Format)
	}
	if !bytes.Equal(got.Data, src.Data) {
		t.Fatal("pixel data not byte-identical")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("#?NOTRADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 1\n")
	buf.Write(make([]byte, 4))
	if _, _, err := Decode(buf); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("error %v, want ErrBadMagic", err)
	}
}

func TestEncodeRejectsNonRGBE(t *testing.T) {
	src := tex.New(2, 2, tex.FormatRGBA8, 1, 1)
	var buf bytes.Buffer
	if err := Encode(&buf, src); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error %v, want ErrUnsupportedFormat", err)
	}
}
