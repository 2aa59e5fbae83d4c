package packets

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

const (
	// DefaultMaxStringLength bounds the byte length of a decoded string.
	DefaultMaxStringLength = 1 << 16
	// DefaultMaxArrayLength bounds the element count of a decoded array.
	DefaultMaxArrayLength = 1 << 12

	maxULEB128Shift = 35
)

// Reader is a cursor over a byte slice that decodes Bancho wire types. A
// failed read never moves the cursor, so the reader remains usable for a
// retried read after an error.
type Reader struct {
	buf    []byte
	offset int

	MaxStringLength int
	MaxArrayLength  int
}

func NewReader(buf []byte) *Reader {
	return &Reader{
		buf:             buf,
		MaxStringLength: DefaultMaxStringLength,
		MaxArrayLength:  DefaultMaxArrayLength,
	}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.offset
}

func (r *Reader) Offset() int {
	return r.offset
}

// ReadBytes consumes n bytes and returns them. The returned slice aliases the
// reader's buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, ErrBufferUnderrun
	}
	b := r.buf[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// Skip advances the cursor by n bytes without decoding them.
func (r *Reader) Skip(n int) error {
	_, err := r.ReadBytes(n)
	return err
}

// Sub consumes the next n bytes and returns a new Reader over them with the
// same limits.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: b, MaxStringLength: r.MaxStringLength, MaxArrayLength: r.MaxArrayLength}, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadHeader reads a packet header and returns the packet id and payload
// length. The caller is responsible for consuming exactly length bytes.
func (r *Reader) ReadHeader() (ID, uint32, error) {
	b, err := r.ReadBytes(HeaderSize)
	if err != nil {
		return 0, 0, err
	}
	if b[2] != 0 {
		r.offset -= HeaderSize
		return 0, 0, ErrBadPadding
	}
	id := binary.LittleEndian.Uint16(b[0:2])
	length := binary.LittleEndian.Uint32(b[3:7])
	return ID(id), length, nil
}

// ReadULEB128 decodes an unsigned LEB128 integer. Encodings needing more than
// 35 bits of shift are rejected with ErrLengthLimit.
func (r *Reader) ReadULEB128() (uint64, error) {
	start := r.offset
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadU8()
		if err != nil {
			r.offset = start
			return 0, err
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > maxULEB128Shift {
			r.offset = start
			return 0, ErrLengthLimit
		}
	}
}

// ReadString reads a presence byte followed, if the byte is non-zero, by a
// ULEB128 length and that many bytes of UTF-8.
func (r *Reader) ReadString() (string, error) {
	start := r.offset
	s, err := r.readString()
	if err != nil {
		r.offset = start
	}
	return s, err
}

func (r *Reader) readString() (string, error) {
	present, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	if present == 0 {
		return "", nil
	}

	length, err := r.ReadULEB128()
	if err != nil {
		return "", err
	}
	if r.MaxStringLength > 0 && length > uint64(r.MaxStringLength) {
		return "", ErrLengthLimit
	}
	if length > uint64(r.Remaining()) {
		return "", ErrBufferUnderrun
	}

	b, _ := r.ReadBytes(int(length))
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// ReadI32Slice reads a u16 element count followed by that many i32 values.
func (r *Reader) ReadI32Slice() ([]int32, error) {
	start := r.offset
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if r.MaxArrayLength > 0 && int(count) > r.MaxArrayLength {
		r.offset = start
		return nil, ErrLengthLimit
	}
	if int(count)*4 > r.Remaining() {
		r.offset = start
		return nil, ErrBufferUnderrun
	}

	values := make([]int32, count)
	for i := range values {
		values[i], _ = r.ReadI32()
	}
	return values, nil
}
