package packets

import "errors"

var (
	ErrBufferUnderrun = errors.New("packets: buffer underrun")
	ErrBadPadding     = errors.New("packets: non-zero header pad byte")
	ErrInvalidUTF8    = errors.New("packets: string is not valid UTF-8")
	ErrLengthLimit    = errors.New("packets: declared length exceeds limit")
)
