package tex

import (
	"math"
	"testing"
)

// fillPattern writes a deterministic byte pattern that is valid pixel data
// for integer formats.
func fillPattern(data []byte) {
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
}

func TestRoundTripIntegerFormats(t *testing.T) {
	formats := []Format{FormatBGR8, FormatRGB8, FormatRGB16, FormatRGBA16, FormatBGRA8, FormatRGBA8}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			src := New(4, 4, format, 1, 1)
			fillPattern(src.Data)

			got := FromCanonical(ToCanonical(src), format)
			for i := range src.Data {
				if got.Data[i] != src.Data[i] {
					t.Fatalf("byte %d: got 0x%02x, want 0x%02x", i, got.Data[i], src.Data[i])
				}
			}
		})
	}
}

func TestRoundTripFloat32(t *testing.T) {
	src := New(4, 4, FormatRGBA32F, 1, 1)
	for i := 0; i < src.PixelCount(); i++ {
		SetCanonicalAt(src.Data, i*16, [4]float32{float32(i) * 1.5, -2, 1e6, 0.25})
	}

	got := FromCanonical(ToCanonical(src), FormatRGBA32F)
	for i := range src.Data {
		if got.Data[i] != src.Data[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
}

func TestRoundTripHalfFormats(t *testing.T) {
	// Multiples of 1/256 in [0, 1] are exactly representable in binary16.
	src := New(4, 4, FormatRGBA16F, 1, 1)
	canonical := ToCanonical(src)
	for i := 0; i < src.PixelCount(); i++ {
		v := float32(i%256) / 256
		SetCanonicalAt(canonical.Data, i*16, [4]float32{v, v / 2, v / 4, 1})
	}

	first := FromCanonical(canonical, FormatRGBA16F)
	second := FromCanonical(ToCanonical(first), FormatRGBA16F)
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("byte %d differs after second round trip", i)
		}
	}
}

func TestAlphaInjection(t *testing.T) {
	formats := []Format{FormatBGR8, FormatRGB8, FormatRGB16, FormatRGB16F, FormatRGB32F, FormatRGBE}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			src := New(2, 2, format, 1, 1)
			fillPattern(src.Data)

			canonical := ToCanonical(src)
			for i := 0; i < canonical.PixelCount(); i++ {
				px := CanonicalAt(canonical.Data, i*16)
				if px[3] != 1 {
					t.Fatalf("pixel %d: alpha = %v, want 1", i, px[3])
				}
			}
		})
	}
}

func TestRGBEDecode(t *testing.T) {
	tests := []struct {
		name string
		in   [4]byte
		want [4]float32
	}{
		{"zero exponent", [4]byte{10, 20, 30, 0}, [4]float32{0, 0, 0, 1}},
		{"mid gray", [4]byte{128, 128, 128, 128}, [4]float32{0.5, 0.5, 0.5, 1}},
		{"bright", [4]byte{255, 0, 0, 140}, [4]float32{255 * 16, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PixelToCanonical(FormatRGBE, tt.in[:])
			for c := 0; c < 4; c++ {
				if math.Abs(float64(got[c]-tt.want[c])) > 1e-6*math.Max(1, float64(tt.want[c])) {
					t.Fatalf("channel %d: got %v, want %v", c, got[c], tt.want[c])
				}
			}
		})
	}
}

func TestRGBEEncode(t *testing.T) {
	var px [4]byte

	PixelFromCanonical([4]float32{0, 0, 0, 1}, FormatRGBE, px[:])
	if px != [4]byte{0, 0, 0, 0} {
		t.Fatalf("black: got %v, want all zero", px)
	}

	PixelFromCanonical([4]float32{-1, -2, -3, 1}, FormatRGBE, px[:])
	if px != [4]byte{0, 0, 0, 0} {
		t.Fatalf("negative: got %v, want all zero", px)
	}

	// A value round trip must stay within the 8-bit mantissa precision.
	want := [4]float32{0.5, 0.25, 0.125, 1}
	PixelFromCanonical(want, FormatRGBE, px[:])
	got := PixelToCanonical(FormatRGBE, px[:])
	for c := 0; c < 3; c++ {
		if math.Abs(float64(got[c]-want[c])) > 1.0/128 {
			t.Fatalf("channel %d: got %v, want %v", c, got[c], want[c])
		}
	}
}

func TestConvertRouting(t *testing.T) {
	src := New(2, 2, FormatRGB8, 1, 1)
	fillPattern(src.Data)

	// Same-format conversion must be a copy, not an alias.
	same := Convert(src, FormatRGB8)
	if &same.Data[0] == &src.Data[0] {
		t.Fatal("same-format Convert returned an alias")
	}

	// A non-canonical to non-canonical conversion routes through RGBA32F.
	bgra := Convert(src, FormatBGRA8)
	if bgra.Format != FormatBGRA8 || len(bgra.Data) != 2*2*4 {
		t.Fatalf("bad conversion result: format %s, %d bytes", bgra.Format, len(bgra.Data))
	}
	if bgra.Data[3] != 255 {
		t.Fatalf("injected alpha = %d, want 255", bgra.Data[3])
	}
	// RGB -> BGR channel swap.
	if bgra.Data[0] != src.Data[2] || bgra.Data[2] != src.Data[0] {
		t.Fatal("channel order not swapped")
	}
}

func TestRefOrConvert(t *testing.T) {
	src := New(2, 2, FormatRGBA32F, 1, 1)

	ref, isRef := RefOrConvert(src, FormatRGBA32F)
	if !isRef {
		t.Fatal("expected an alias for matching format")
	}
	if &ref.Data[0] != &src.Data[0] {
		t.Fatal("alias does not share the buffer")
	}

	conv, isRef := RefOrConvert(src, FormatRGBA8)
	if isRef {
		t.Fatal("expected a conversion for a different format")
	}
	if conv.Format != FormatRGBA8 {
		t.Fatalf("converted format = %s", conv.Format)
	}
}
