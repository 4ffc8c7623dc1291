package bencode

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Encode serializes v. Dict entries are written in their stored order, so decoding
// and re-encoding any input reproduces it exactly.
func Encode(v Value) ([]byte, error) {
	builder := strings.Builder{}
	err := encodeAny(&builder, v)
	if err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}

func encodeAny(builder *strings.Builder, item Value) error {
	switch v := item.(type) {
	case Int:
		encodeInt(builder, int64(v))
	case Bytes:
		encodeBytes(builder, v)
	case List:
		return encodeList(builder, v)
	case Dict:
		return encodeDict(builder, v)
	default:
		return errors.Errorf("unsupported type %T", item)
	}
	return nil
}

func encodeInt(builder *strings.Builder, val int64) {
	builder.WriteByte('i')
	builder.WriteString(strconv.FormatInt(val, 10))
	builder.WriteByte('e')
}

func encodeBytes(builder *strings.Builder, data []byte) {
	builder.WriteString(strconv.Itoa(len(data)))
	builder.WriteByte(':')
	builder.Write(data)
}

func encodeList(builder *strings.Builder, list List) error {
	builder.WriteByte('l')
	for _, item := range list {
		err := encodeAny(builder, item)
		if err != nil {
			return err
		}
	}
	builder.WriteByte('e')
	return nil
}

func encodeDict(builder *strings.Builder, d Dict) error {
	builder.WriteByte('d')
	var err error
	d.Range(func(key string, value Value) bool {
		encodeBytes(builder, []byte(key))
		err = encodeAny(builder, value)
		return err == nil
	})
	if err != nil {
		return err
	}
	builder.WriteByte('e')
	return nil
}
