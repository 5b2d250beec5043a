package node

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "", TruncateByRunes("abc", -1))
	assert.Equal(t, "abc", TruncateByRunes("abc", 3))
	assert.Equal(t, "abc", TruncateByRunes("abc", 10))
	assert.Equal(t, "ab", TruncateByRunes("abc", 2))
}

func TestTruncateByRunesMultibyte(t *testing.T) {
	s := "你好世界"
	got := TruncateByRunes(s, 2)
	assert.Equal(t, "你好", got)
	// 截断点必须落在字符边界上
	assert.True(t, strings.HasPrefix(s, got))
}
