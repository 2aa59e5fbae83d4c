package packets

import (
	"encoding/binary"
	"math"
)

// stringPresent marks a non-empty string on the wire.
const stringPresent = 0x0B

// Writer accumulates the payload of a single packet. Each write method returns
// the Writer so that calls can be chained.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Len returns the number of payload bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteBytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) WriteU8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) WriteI8(v int8) *Writer {
	return w.WriteU8(uint8(v))
}

func (w *Writer) WriteBool(v bool) *Writer {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

func (w *Writer) WriteU16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) WriteI16(v int16) *Writer {
	return w.WriteU16(uint16(v))
}

func (w *Writer) WriteU32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) WriteI32(v int32) *Writer {
	return w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) WriteI64(v int64) *Writer {
	return w.WriteU64(uint64(v))
}

func (w *Writer) WriteF32(v float32) *Writer {
	return w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteULEB128(v uint64) *Writer {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return w
		}
	}
}

// WriteString writes a single zero byte for an empty string, otherwise the
// presence byte, the ULEB128 byte length and the UTF-8 bytes.
func (w *Writer) WriteString(s string) *Writer {
	if s == "" {
		return w.WriteU8(0)
	}
	w.WriteU8(stringPresent)
	w.WriteULEB128(uint64(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

func (w *Writer) WriteI32Slice(values []int32) *Writer {
	w.WriteU16(uint16(len(values)))
	for _, v := range values {
		w.WriteI32(v)
	}
	return w
}

// Finish returns a new slice holding the packet header for id followed by the
// payload written so far. The Writer is left untouched.
func (w *Writer) Finish(id ID) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(w.buf))
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	out[2] = 0
	binary.LittleEndian.PutUint32(out[3:7], uint32(len(w.buf)))
	return append(out, w.buf...)
}

// Empty returns a header-only packet.
func Empty(id ID) []byte {
	return NewWriter().Finish(id)
}
