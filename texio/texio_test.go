package texio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/mrjoshuak/go-cubemap/ktx"
	"github.com/mrjoshuak/go-cubemap/tex"
)

func testImage(format tex.Format) *tex.Image {
	img := tex.New(8, 8, format, 1, 1)
	for i := range img.Data {
		img.Data[i] = byte(i*3 + 11)
	}
	return img
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		fileType tex.FileType
		format   tex.Format
	}{
		{tex.FileTypeDDS, tex.FormatBGRA8},
		{tex.FileTypeKTX, tex.FormatRGBA8},
		{tex.FileTypeTGA, tex.FormatBGR8},
		{tex.FileTypeHDR, tex.FormatRGBE},
	}

	for _, tt := range tests {
		t.Run(tt.fileType.String(), func(t *testing.T) {
			src := testImage(tt.format)
			stem := filepath.Join(dir, "image-"+tt.fileType.String())

			if err := Save(src, stem, tt.fileType, SaveOptions{}); err != nil {
				t.Fatal(err)
			}

			path := stem + tt.fileType.Ext()
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("expected output file: %v", err)
			}

			got, err := Load(path, tex.FormatUnknown)
			if err != nil {
				t.Fatal(err)
			}
			if got.Format != tt.format {
				t.Fatalf("format %s, want %s", got.Format, tt.format)
			}
			if !bytes.Equal(got.Data, src.Data) {
				t.Fatal("pixel data not byte-identical")
			}
		})
	}
}

func TestLoadConverts(t *testing.T) {
	dir := t.TempDir()
	src := testImage(tex.FormatBGRA8)
	stem := filepath.Join(dir, "convert")

	if err := Save(src, stem, tex.FileTypeDDS, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	got, err := Load(stem+".dds", tex.FormatRGBA32F)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != tex.FormatRGBA32F {
		t.Fatalf("format %s, want RGBA32F", got.Format)
	}
}

func TestSaveConverts(t *testing.T) {
	dir := t.TempDir()
	src := testImage(tex.FormatRGBA8)
	stem := filepath.Join(dir, "saveconv")

	if err := Save(src, stem, tex.FileTypeTGA, SaveOptions{ConvertTo: tex.FormatBGRA8}); err != nil {
		t.Fatal(err)
	}

	got, err := Load(stem+".tga", tex.FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != tex.FormatBGRA8 {
		t.Fatalf("format %s, want BGRA8", got.Format)
	}
}

func TestSaveRefusesIllegalFormat(t *testing.T) {
	dir := t.TempDir()
	src := testImage(tex.FormatRGB8)

	err := Save(src, filepath.Join(dir, "bad"), tex.FileTypeDDS, SaveOptions{})
	if !errors.Is(err, ErrInvalidSaveFormat) {
		t.Fatalf("error %v, want ErrInvalidSaveFormat", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bad.dds")); !os.IsNotExist(statErr) {
		t.Fatal("refused save left a file behind")
	}
}

func TestLoadGzipWrapped(t *testing.T) {
	dir := t.TempDir()
	src := testImage(tex.FormatRGBA8)

	var ktxBuf bytes.Buffer
	if err := ktx.Encode(&ktxBuf, src); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "image.ktx.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(ktxBuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, tex.FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != tex.FormatRGBA8 || !bytes.Equal(got.Data, src.Data) {
		t.Fatal("gzip-wrapped ktx did not round trip")
	}
}

func TestSaveGzip(t *testing.T) {
	dir := t.TempDir()
	src := testImage(tex.FormatRGBA8)
	stem := filepath.Join(dir, "zipped")

	if err := Save(src, stem, tex.FileTypeKTX, SaveOptions{Gzip: true}); err != nil {
		t.Fatal(err)
	}

	path := stem + ".ktx.gz"
	got, err := Load(path, tex.FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Data, src.Data) {
		t.Fatal("gzip save did not round trip")
	}
}

func TestLoadUnknownFileType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.bin")
	if err := os.WriteFile(path, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, tex.FormatUnknown); !errors.Is(err, ErrUnknownFileType) {
		t.Fatalf("error %v, want ErrUnknownFileType", err)
	}
}

func TestDispatchByMagic(t *testing.T) {
	// Each codec's output must be recognized by content, not by extension.
	dir := t.TempDir()
	src := testImage(tex.FormatBGRA8)
	stem := filepath.Join(dir, "noext")

	if err := Save(src, stem, tex.FileTypeDDS, SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	renamed := filepath.Join(dir, "mystery")
	if err := os.Rename(stem+".dds", renamed); err != nil {
		t.Fatal(err)
	}

	got, err := Load(renamed, tex.FormatUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != tex.FormatBGRA8 {
		t.Fatalf("format %s, want BGRA8", got.Format)
	}
}
