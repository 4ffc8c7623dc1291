package bencode

import (
	"fmt"
	"strconv"

	"github.com/juju/errors"
)

const (
	// MaxStringLength is the largest accepted byte string. Longer declared lengths
	// are rejected before any payload byte is read.
	MaxStringLength = 10 * 1024 * 1024
	// MaxDepth bounds list/dict nesting.
	MaxDepth = 256
)

var (
	ErrMalformedInteger  = errors.New("malformed integer")
	ErrTruncatedString   = errors.New("truncated string")
	ErrLengthOutOfBounds = errors.New("string length out of bounds")
	ErrInvalidMapKey     = errors.New("invalid map key")
	ErrUnterminated      = errors.New("unterminated list or dict")
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrNestingTooDeep    = errors.New("nesting too deep")
	ErrNotDict           = errors.New("top level value is not a dict")
)

type SyntaxError struct {
	Offset int
	Err    error
	Msg    string
}

func (e *SyntaxError) Error() string {
	if len(e.Msg) > 0 {
		return fmt.Sprintf("bencode: %v at offset %d: %s", e.Err, e.Offset, e.Msg)
	}
	return fmt.Sprintf("bencode: %v at offset %d", e.Err, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Decode parses buf and requires the top level value to be a dict. Bytes after the
// top level dict are ignored. Byte strings in the result alias buf.
func Decode(buf []byte) (Dict, error) {
	v, _, err := DecodeValue(buf)
	if err != nil {
		return Dict{}, err
	}
	d, ok := v.(Dict)
	if !ok {
		return Dict{}, &SyntaxError{Offset: 0, Err: ErrNotDict}
	}
	return d, nil
}

// DecodeValue parses one value from the start of buf and returns the number of
// bytes it consumed.
func DecodeValue(buf []byte) (Value, int, error) {
	d := &decoder{buf: buf}
	v, err := d.decodeAny()
	if err != nil {
		return nil, d.pos, err
	}
	return v, d.pos, nil
}

type decoder struct {
	buf   []byte
	pos   int
	depth int
}

func (d *decoder) fail(err error, offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) decodeAny() (Value, error) {
	if d.pos >= len(d.buf) {
		return nil, d.fail(ErrUnterminated, d.pos, "unexpected end of data")
	}
	switch c := d.buf[d.pos]; {
	case c == 'i':
		return d.decodeInt()
	case c >= '0' && c <= '9':
		return d.decodeBytes()
	case c == 'l':
		return d.decodeList()
	case c == 'd':
		return d.decodeDict()
	default:
		return nil, d.fail(ErrUnexpectedToken, d.pos, "type byte %q", c)
	}
}

func (d *decoder) decodeInt() (Int, error) {
	begin := d.pos + 1
	i := begin
	for ; i < len(d.buf) && d.buf[i] != 'e'; i++ {
	}
	if i >= len(d.buf) {
		return 0, d.fail(ErrMalformedInteger, d.pos, "unterminated")
	}
	digits := d.buf[begin:i]
	if !isInteger(digits) {
		return 0, d.fail(ErrMalformedInteger, d.pos, "%q", digits)
	}
	ret, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return 0, d.fail(ErrMalformedInteger, d.pos, "%q", digits)
	}
	d.pos = i + 1
	return Int(ret), nil
}

func isInteger(b []byte) bool {
	if len(b) > 0 && b[0] == '-' {
		b = b[1:]
	}
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (d *decoder) decodeBytes() (Bytes, error) {
	start := d.pos
	i := start
	length := 0
	digits := 0
	for ; i < len(d.buf) && d.buf[i] != ':'; i++ {
		c := d.buf[i]
		if c < '0' || c > '9' {
			return nil, d.fail(ErrMalformedInteger, start, "string length contains %q", c)
		}
		length = length*10 + int(c-'0')
		digits++
		if length > MaxStringLength {
			return nil, d.fail(ErrLengthOutOfBounds, start, "declared length exceeds %d", MaxStringLength)
		}
	}
	if i >= len(d.buf) {
		return nil, d.fail(ErrTruncatedString, start, "missing ':'")
	}
	if digits == 0 {
		return nil, d.fail(ErrMalformedInteger, start, "empty string length")
	}
	begin := i + 1
	if len(d.buf)-begin < length {
		return nil, d.fail(ErrTruncatedString, start, "want %d bytes, have %d", length, len(d.buf)-begin)
	}
	d.pos = begin + length
	return Bytes(d.buf[begin:d.pos]), nil
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return d.fail(ErrNestingTooDeep, d.pos, "depth %d", d.depth)
	}
	return nil
}

func (d *decoder) decodeList() (List, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	start := d.pos
	ret := make(List, 0)
	d.pos++
	for d.pos < len(d.buf) && d.buf[d.pos] != 'e' {
		item, err := d.decodeAny()
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if d.pos >= len(d.buf) {
		return nil, d.fail(ErrUnterminated, start, "list")
	}
	d.pos++
	return ret, nil
}

func (d *decoder) decodeDict() (Dict, error) {
	if err := d.enter(); err != nil {
		return Dict{}, err
	}
	defer func() { d.depth-- }()
	start := d.pos
	ret := NewDict()
	d.pos++
	for d.pos < len(d.buf) && d.buf[d.pos] != 'e' {
		keyAt := d.pos
		if c := d.buf[d.pos]; c < '0' || c > '9' {
			return Dict{}, d.fail(ErrInvalidMapKey, keyAt, "key starts with %q", c)
		}
		key, err := d.decodeBytes()
		if err != nil {
			return Dict{}, err
		}
		if ret.Has(string(key)) {
			return Dict{}, d.fail(ErrInvalidMapKey, keyAt, "duplicate key %q", key)
		}
		value, err := d.decodeAny()
		if err != nil {
			return Dict{}, err
		}
		ret.Set(string(key), value)
	}
	if d.pos >= len(d.buf) {
		return Dict{}, d.fail(ErrUnterminated, start, "dict")
	}
	d.pos++
	return ret, nil
}
