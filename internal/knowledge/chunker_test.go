package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := Chunk("hello world", 500, 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0])
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, Chunk("", 500, 100))
		assert.Nil(t, Chunk("   \n  ", 500, 100))
	})

	t.Run("overlap between consecutive chunks", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 120) // 1200 runes
		chunks := Chunk(text, 500, 100)
		require.Len(t, chunks, 3)

		assert.Len(t, []rune(chunks[0]), 500)
		// each chunk starts where the previous one ended minus the overlap
		assert.Equal(t, chunks[0][400:], chunks[1][:100])
		assert.Equal(t, chunks[1][400:], chunks[2][:100])
	})

	t.Run("covers the whole text", func(t *testing.T) {
		text := strings.Repeat("x", 1234)
		chunks := Chunk(text, 500, 100)
		var total int
		for _, c := range chunks {
			total += len(c)
		}
		assert.GreaterOrEqual(t, total, len(text))
		assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
	})

	t.Run("multibyte text never splits mid rune", func(t *testing.T) {
		text := strings.Repeat("日本語テキスト", 200)
		chunks := Chunk(text, 500, 100)
		for _, c := range chunks {
			assert.True(t, len([]rune(c)) <= 500)
			for _, r := range c {
				assert.NotEqual(t, '�', r)
			}
		}
	})

	t.Run("bad overlap falls back to none", func(t *testing.T) {
		chunks := Chunk(strings.Repeat("x", 30), 10, 15)
		require.Len(t, chunks, 3)
	})

	t.Run("zero size", func(t *testing.T) {
		assert.Nil(t, Chunk("anything", 0, 0))
	})
}
