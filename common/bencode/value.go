package bencode

import (
	"github.com/elliotchance/orderedmap"
)

// Value is one of Int, Bytes, List or Dict.
type Value interface {
	isValue()
}

type Int int64

type Bytes []byte

type List []Value

// Dict keeps keys in the order they were decoded so Encode reproduces the input.
type Dict struct {
	m *orderedmap.OrderedMap
}

func (Int) isValue()   {}
func (Bytes) isValue() {}
func (List) isValue()  {}
func (Dict) isValue()  {}

// Str is a shorthand for building byte string values from text.
func Str(s string) Bytes {
	return Bytes(s)
}

func NewDict() Dict {
	return Dict{m: orderedmap.NewOrderedMap()}
}

func (d Dict) Get(key string) (Value, bool) {
	if d.m == nil {
		return nil, false
	}
	v, ok := d.m.Get(key)
	if !ok {
		return nil, false
	}
	return v.(Value), true
}

func (d Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Set adds or replaces key. A zero Dict must be created with NewDict first.
func (d Dict) Set(key string, value Value) Dict {
	d.m.Set(key, value)
	return d
}

func (d Dict) Len() int {
	if d.m == nil {
		return 0
	}
	return d.m.Len()
}

func (d Dict) Keys() []string {
	ret := make([]string, 0, d.Len())
	d.Range(func(key string, _ Value) bool {
		ret = append(ret, key)
		return true
	})
	return ret
}

// Range calls f for every entry in insertion order until f returns false.
func (d Dict) Range(f func(key string, value Value) bool) {
	if d.m == nil {
		return
	}
	for el := d.m.Front(); el != nil; el = el.Next() {
		if !f(el.Key.(string), el.Value.(Value)) {
			return
		}
	}
}
