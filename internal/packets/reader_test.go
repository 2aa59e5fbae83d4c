package packets

import (
	"errors"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u8 := rapid.Uint8().Draw(t, "u8")
		i8 := rapid.Int8().Draw(t, "i8")
		u16 := rapid.Uint16().Draw(t, "u16")
		i16 := rapid.Int16().Draw(t, "i16")
		u32 := rapid.Uint32().Draw(t, "u32")
		i32 := rapid.Int32().Draw(t, "i32")
		u64 := rapid.Uint64().Draw(t, "u64")
		i64 := rapid.Int64().Draw(t, "i64")
		f32 := math.Float32frombits(rapid.Uint32().Draw(t, "f32"))

		w := NewWriter().
			WriteU8(u8).WriteI8(i8).
			WriteU16(u16).WriteI16(i16).
			WriteU32(u32).WriteI32(i32).
			WriteU64(u64).WriteI64(i64).
			WriteF32(f32)

		r := NewReader(w.buf)
		gotU8, _ := r.ReadU8()
		gotI8, _ := r.ReadI8()
		gotU16, _ := r.ReadU16()
		gotI16, _ := r.ReadI16()
		gotU32, _ := r.ReadU32()
		gotI32, _ := r.ReadI32()
		gotU64, _ := r.ReadU64()
		gotI64, _ := r.ReadI64()
		gotF32, err := r.ReadF32()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotU8 != u8 || gotI8 != i8 || gotU16 != u16 || gotI16 != i16 {
			t.Fatalf("small integer mismatch")
		}
		if gotU32 != u32 || gotI32 != i32 || gotU64 != u64 || gotI64 != i64 {
			t.Fatalf("large integer mismatch")
		}
		if math.Float32bits(gotF32) != math.Float32bits(f32) {
			t.Fatalf("f32 mismatch: got %v, want %v", gotF32, f32)
		}
		if r.Remaining() != 0 {
			t.Fatalf("%d bytes left unread", r.Remaining())
		}
	})
}

func TestStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringN(0, 512, -1).Draw(t, "s")
		if !utf8.ValidString(s) {
			t.Skip("generated invalid UTF-8")
		}

		got, err := NewReader(NewWriter().WriteString(s).buf).ReadString()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != s {
			t.Fatalf("got %q, want %q", got, s)
		}
	})
}

func TestULEB128RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64Range(0, 1<<35-1).Draw(t, "v")
		got, err := NewReader(NewWriter().WriteULEB128(v).buf).ReadULEB128()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != v {
			t.Fatalf("got %d, want %d", got, v)
		}
	})
}

func TestWriteString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{name: "empty string is a single zero byte", in: "", want: []byte{0}},
		{name: "ascii", in: "abc", want: []byte{0x0B, 3, 'a', 'b', 'c'}},
		{name: "multi-byte length counts bytes", in: "é", want: []byte{0x0B, 2, 0xC3, 0xA9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NewWriter().WriteString(tt.in).buf); diff != "" {
				t.Errorf("unexpected encoding; diff:\n%s", diff)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name       string
		in         []byte
		wantID     ID
		wantLength uint32
		wantErr    error
	}{
		{
			name:       "valid header",
			in:         []byte{0x04, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00},
			wantID:     ClientPing,
			wantLength: 5,
		},
		{
			name:    "non-zero pad byte",
			in:      []byte{0x04, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
			wantErr: ErrBadPadding,
		},
		{
			name:    "truncated header",
			in:      []byte{0x04, 0x00, 0x00},
			wantErr: ErrBufferUnderrun,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in)
			id, length, err := r.ReadHeader()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if r.Offset() != 0 {
					t.Errorf("cursor moved to %d on a failed read", r.Offset())
				}
				return
			}
			if id != tt.wantID || length != tt.wantLength {
				t.Errorf("ReadHeader() = (%d, %d), want (%d, %d)", id, length, tt.wantID, tt.wantLength)
			}
		})
	}
}

func TestReadHeaderPadProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOfN(rapid.Byte(), HeaderSize, HeaderSize).Draw(t, "header")
		_, _, err := NewReader(in).ReadHeader()
		if (in[2] != 0) != errors.Is(err, ErrBadPadding) {
			t.Fatalf("pad byte %d produced error %v", in[2], err)
		}
	})
}

func TestReaderFailuresLeaveCursor(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		read    func(r *Reader) error
		wantErr error
	}{
		{
			name:    "u32 underrun",
			in:      []byte{1, 2, 3},
			read:    func(r *Reader) error { _, err := r.ReadU32(); return err },
			wantErr: ErrBufferUnderrun,
		},
		{
			name:    "string length past end",
			in:      []byte{0x0B, 10, 'a'},
			read:    func(r *Reader) error { _, err := r.ReadString(); return err },
			wantErr: ErrBufferUnderrun,
		},
		{
			name:    "invalid utf-8",
			in:      []byte{0x0B, 2, 0xff, 0xfe},
			read:    func(r *Reader) error { _, err := r.ReadString(); return err },
			wantErr: ErrInvalidUTF8,
		},
		{
			name:    "unterminated uleb128",
			in:      []byte{0x80, 0x80},
			read:    func(r *Reader) error { _, err := r.ReadULEB128(); return err },
			wantErr: ErrBufferUnderrun,
		},
		{
			name:    "oversized uleb128",
			in:      []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read:    func(r *Reader) error { _, err := r.ReadULEB128(); return err },
			wantErr: ErrLengthLimit,
		},
		{
			name:    "array count past end",
			in:      []byte{2, 0, 1, 0, 0, 0},
			read:    func(r *Reader) error { _, err := r.ReadI32Slice(); return err },
			wantErr: ErrBufferUnderrun,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in)
			if err := tt.read(r); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
			if r.Offset() != 0 {
				t.Errorf("cursor moved to %d on a failed read", r.Offset())
			}
		})
	}
}

func TestReadStringLimit(t *testing.T) {
	r := NewReader(NewWriter().WriteString("too long").buf)
	r.MaxStringLength = 4
	if _, err := r.ReadString(); !errors.Is(err, ErrLengthLimit) {
		t.Fatalf("got error %v, want %v", err, ErrLengthLimit)
	}
}

func TestReadI32Slice(t *testing.T) {
	in := []int32{1, -2, 1 << 30}
	got, err := NewReader(NewWriter().WriteI32Slice(in).buf).ReadI32Slice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("unexpected slice; diff:\n%s", diff)
	}
}
