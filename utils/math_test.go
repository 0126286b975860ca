package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCodingLength(t *testing.T) {
	cases := []struct {
		characteristics int
		want            int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3},
		{9, 4}, {16, 4}, {17, 5}, {32, 5}, {33, 6}, {64, 6},
		{65, 7}, {128, 7}, {129, 8}, {256, 8}, {257, 9},
		{1024, 10}, {1025, 11}, {65536, 16}, {65537, 17},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GetCodingLength(c.characteristics),
			"characteristics=%d", c.characteristics)
	}
}

func TestNumberOf7BitBlocks(t *testing.T) {
	assert.Equal(t, 1, NumberOf7BitBlocks32(0))
	assert.Equal(t, 1, NumberOf7BitBlocks32(127))
	assert.Equal(t, 2, NumberOf7BitBlocks32(128))
	assert.Equal(t, 2, NumberOf7BitBlocks32(16383))
	assert.Equal(t, 3, NumberOf7BitBlocks32(16384))
	assert.Equal(t, 5, NumberOf7BitBlocks32(1<<31))

	assert.Equal(t, 1, NumberOf7BitBlocks64(0))
	assert.Equal(t, 2, NumberOf7BitBlocks64(128))
	assert.Equal(t, 10, NumberOf7BitBlocks64(1<<63))
}

func TestCodePointCount(t *testing.T) {
	assert.Equal(t, 0, CodePointCount(""))
	assert.Equal(t, 3, CodePointCount("abc"))
	assert.Equal(t, 2, CodePointCount("é€"))
}

func TestIsValidCodePoint(t *testing.T) {
	assert.True(t, IsValidCodePoint(0))
	assert.True(t, IsValidCodePoint('A'))
	assert.True(t, IsValidCodePoint(0x10FFFF))
	assert.False(t, IsValidCodePoint(-1))
	assert.False(t, IsValidCodePoint(0x110000))
	assert.False(t, IsValidCodePoint(0xD800))
	assert.False(t, IsValidCodePoint(0xDFFF))
}
