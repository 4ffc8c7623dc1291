package bencode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetByPath(t *testing.T) {
	d, err := Decode([]byte("d1:ad1:bd1:ci1eee1:x2:yye"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, Int(1), GetByPath(d, "a.b.c"))
	assert.Nil(t, GetByPath(d, "a.b.d"))
	assert.Nil(t, GetByPath(d, "x.y"))
	assert.True(t, CheckMapPath(d, "a.b"))
	assert.False(t, CheckMapPath(d, "b"))

	x, ok := GetBytes(d, "x")
	assert.True(t, ok)
	assert.Equal(t, []byte("yy"), x)
	_, ok = GetInt(d, "x")
	assert.False(t, ok)
	_, ok = GetDict(d, "a.b")
	assert.True(t, ok)
	_, ok = GetList(d, "a")
	assert.False(t, ok)
}
