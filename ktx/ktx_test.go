package ktx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mrjoshuak/go-cubemap/tex"
)

func TestRowPadAlignment(t *testing.T) {
	// A 3x1 RGB8 image has a 9-byte pitch, padded by 3 bytes to the 4-byte
	// unpack alignment. The stated face size includes the row padding.
	src := tex.New(3, 1, tex.FormatRGB8, 1, 1)
	copy(src.Data, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	raw := buf.Bytes()
	wantLen := 12 + 52 + 4 + 9 + 3
	if len(raw) != wantLen {
		t.Fatalf("file length %d, want %d", len(raw), wantLen)
	}

	faceSize := binary.LittleEndian.Uint32(raw[64:])
	if faceSize != 12 {
		t.Fatalf("stated face size %d, want 12", faceSize)
	}
	if !bytes.Equal(raw[68:77], src.Data) {
		t.Fatal("payload bytes differ")
	}
	if raw[77] != 0 || raw[78] != 0 || raw[79] != 0 {
		t.Fatal("row padding is not zero")
	}

	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, src.Data) {
		t.Fatal("pixel data not byte-identical after round trip")
	}
}

func TestCubemapMipRoundTrip(t *testing.T) {
	src := tex.New(4, 4, tex.FormatRGBA8, 3, 6)
	for i := range src.Data {
		src.Data[i] = byte(i * 5)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if got.NumFaces != 6 || got.NumMips != 3 || got.Format != tex.FormatRGBA8 {
		t.Fatalf("metadata: faces=%d mips=%d format=%s", got.NumFaces, got.NumMips, got.Format)
	}
	if !bytes.Equal(got.Data, src.Data) {
		t.Fatal("pixel data not byte-identical")
	}
}

func TestPaddedFormatsRoundTrip(t *testing.T) {
	// An odd width gives RGB8, RGB16 and RGB16F unaligned row pitches (row
	// padding path); the other formats cover the aligned path.
	for _, format := range []tex.Format{tex.FormatRGB8, tex.FormatRGB16, tex.FormatRGB16F, tex.FormatRGB32F, tex.FormatRGBA16F, tex.FormatRGBA32F} {
		t.Run(format.String(), func(t *testing.T) {
			src := tex.New(5, 3, format, 1, 1)
			for i := range src.Data {
				src.Data[i] = byte(i*7 + 1)
			}

			var buf bytes.Buffer
			if err := Encode(&buf, src); err != nil {
				t.Fatal(err)
			}

			// Rows, faces and the mip payload must all be 4-byte aligned.
			if (buf.Len()-12-52-4)%4 != 0 {
				t.Fatalf("mip payload is not aligned: %d bytes", buf.Len())
			}

			got, err := Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatal(err)
			}
			if got.Format != format || !bytes.Equal(got.Data, src.Data) {
				t.Fatal("round trip failed")
			}
		})
	}
}

func TestReversedEndianness(t *testing.T) {
	src := tex.New(4, 2, tex.FormatRGBA8, 1, 1)
	for i := range src.Data {
		src.Data[i] = byte(i + 1)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	// Byte-swap every header word after the magic, as a big-endian writer
	// would have produced. glTypeSize 1 means the payload needs no swap.
	raw := buf.Bytes()
	for off := 12; off < 64; off += 4 {
		v := binary.LittleEndian.Uint32(raw[off:])
		binary.BigEndian.PutUint32(raw[off:], v)
	}
	faceSize := binary.LittleEndian.Uint32(raw[64:])
	binary.BigEndian.PutUint32(raw[64:], faceSize)

	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 4 || got.Height != 2 || !bytes.Equal(got.Data, src.Data) {
		t.Fatal("reversed-endian file decoded incorrectly")
	}
}

func TestMipCountZeroCoerced(t *testing.T) {
	src := tex.New(2, 2, tex.FormatRGBA8, 1, 1)
	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	// numMips is the twelfth header word: offset 12 + 11*4.
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[56:], 0)

	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if got.NumMips != 1 {
		t.Fatalf("mips = %d, want 1", got.NumMips)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := make([]byte, 128)
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("error %v, want ErrBadMagic", err)
	}
}

func TestEncodeRejectsIllegalFormat(t *testing.T) {
	for _, format := range []tex.Format{tex.FormatBGR8, tex.FormatBGRA8, tex.FormatRGBE} {
		src := tex.New(2, 2, format, 1, 1)
		var buf bytes.Buffer
		if err := Encode(&buf, src); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: error %v, want ErrUnsupportedFormat", format, err)
		}
	}
}
