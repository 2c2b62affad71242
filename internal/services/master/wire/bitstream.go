// Package wire implements the little-endian bit-packed protocol spoken
// between master and the rest of the fleet.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader consumes little-endian fields from a received packet. Errors are
// sticky: after the first short read every subsequent call returns zero
// values, and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first short-read error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("short packet: need %d bytes at offset %d, have %d", n, r.off, len(r.data))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads one byte and reports whether it is nonzero.
func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// CString reads bytes up to the first NUL or the end of the packet.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	end := r.off
	for end < len(r.data) && r.data[end] != 0 {
		end++
	}
	s := string(r.data[r.off:end])
	if end < len(r.data) {
		end++
	}
	r.off = end
	return s
}

// FixedString reads a width-byte field and trims trailing NUL padding.
func (r *Reader) FixedString(width int) string {
	b := r.take(width)
	if b == nil {
		return ""
	}
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[:end])
}

// PrefixedString reads a u32 length followed by that many raw bytes.
func (r *Reader) PrefixedString() string {
	n := int(r.U32())
	if r.err != nil {
		return ""
	}
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.data) - r.off
}

// Writer builds an outbound packet field by field.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated packet bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// Bool appends 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I32 appends a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// CString appends the string bytes followed by a terminating NUL.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// FixedString appends the string truncated or NUL-padded to width bytes.
func (w *Writer) FixedString(s string, width int) {
	b := []byte(s)
	if len(b) > width {
		b = b[:width]
	}
	w.buf = append(w.buf, b...)
	for i := len(b); i < width; i++ {
		w.buf = append(w.buf, 0)
	}
}

// PrefixedString appends a u32 length followed by the raw string bytes.
func (w *Writer) PrefixedString(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
