// Package binio provides little-endian binary encoding and decoding utilities
// for reading and writing texture container files.
//
// All of the containers handled by this module (DDS, KTX, TGA and the binary
// portions of Radiance HDR) store multi-byte values in little-endian order.
// This package provides efficient, bounds-checked readers and writers for the
// primitive types those headers use.
package binio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var (
	// ErrShortBuffer is returned when a read or write operation cannot complete
	// because there isn't enough space in the buffer.
	ErrShortBuffer = errors.New("binio: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("binio: negative size")
)

// ByteOrder is the byte order used by the texture containers.
var ByteOrder = binary.LittleEndian

// Reader provides little-endian binary reading from a byte slice.
// It maintains a read position and bounds-checks every operation.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytesInto reads len(dst) bytes into the provided slice.
func (r *Reader) ReadBytesInto(dst []byte) error {
	n := len(dst)
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	copy(dst, r.data[r.pos:r.pos+n])
	r.pos += n
	return nil
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadFloat32 reads a 32-bit IEEE 754 floating-point number.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// StreamReader wraps an io.Reader for little-endian binary reading.
type StreamReader struct {
	r   io.Reader
	buf [8]byte
}

// NewStreamReader creates a StreamReader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// ReadByte reads a single byte.
func (r *StreamReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(r.r, r.buf[:1])
	return r.buf[0], err
}

// ReadBytes reads n bytes into a new slice.
func (r *StreamReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	result := make([]byte, n)
	_, err := io.ReadFull(r.r, result)
	return result, err
}

// ReadBytesInto reads bytes into the provided slice.
func (r *StreamReader) ReadBytesInto(dst []byte) error {
	_, err := io.ReadFull(r.r, dst)
	return err
}

// Skip discards n bytes from the stream.
func (r *StreamReader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	_, err := io.CopyN(io.Discard, r.r, int64(n))
	return err
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *StreamReader) ReadUint16() (uint16, error) {
	_, err := io.ReadFull(r.r, r.buf[:2])
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint16(r.buf[:2]), nil
}

// ReadInt16 reads a signed 16-bit integer in little-endian order.
func (r *StreamReader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *StreamReader) ReadUint32() (uint32, error) {
	_, err := io.ReadFull(r.r, r.buf[:4])
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(r.buf[:4]), nil
}

// StreamWriter wraps an io.Writer for little-endian binary writing.
type StreamWriter struct {
	w   io.Writer
	buf [8]byte
}

// NewStreamWriter creates a StreamWriter from an io.Writer.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteByte writes a single byte.
func (w *StreamWriter) WriteByte(b byte) error {
	w.buf[0] = b
	_, err := w.w.Write(w.buf[:1])
	return err
}

// WriteBytes writes a byte slice.
func (w *StreamWriter) WriteBytes(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// WriteZeros writes n zero bytes.
func (w *StreamWriter) WriteZeros(n int) error {
	var pad [8]byte
	for n > 0 {
		chunk := n
		if chunk > len(pad) {
			chunk = len(pad)
		}
		if _, err := w.w.Write(pad[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// WriteUint16 writes an unsigned 16-bit integer in little-endian order.
func (w *StreamWriter) WriteUint16(v uint16) error {
	ByteOrder.PutUint16(w.buf[:2], v)
	_, err := w.w.Write(w.buf[:2])
	return err
}

// WriteInt16 writes a signed 16-bit integer in little-endian order.
func (w *StreamWriter) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

// WriteUint32 writes an unsigned 32-bit integer in little-endian order.
func (w *StreamWriter) WriteUint32(v uint32) error {
	ByteOrder.PutUint32(w.buf[:4], v)
	_, err := w.w.Write(w.buf[:4])
	return err
}

// WriteString writes the raw bytes of a string (no terminator).
func (w *StreamWriter) WriteString(s string) error {
	_, err := io.WriteString(w.w, s)
	return err
}
