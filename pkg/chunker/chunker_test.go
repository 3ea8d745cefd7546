package chunker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{MaxChunkSize: 0, Overlap: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = New(Config{MaxChunkSize: 100, Overlap: 100})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = New(Config{MaxChunkSize: 100, Overlap: 150})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
}

func TestShortTextYieldsSingleChunk(t *testing.T) {
	c, err := New(Config{MaxChunkSize: 1000, Overlap: 200})
	require.NoError(t, err)

	chunks := c.Split("short document")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, "short document", chunks[0].Text)
}

func TestEmptyTextYieldsNoChunks(t *testing.T) {
	c, err := New(Config{MaxChunkSize: 100, Overlap: 10})
	require.NoError(t, err)
	assert.Empty(t, c.Split(""))
}

func TestOffsetsMatchText(t *testing.T) {
	c, err := New(Config{MaxChunkSize: 50, Overlap: 10})
	require.NoError(t, err)

	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	runes := []rune(text)
	for _, ch := range c.Split(text) {
		assert.Equal(t, string(runes[ch.Start:ch.End]), ch.Text)
		assert.LessOrEqual(t, ch.End-ch.Start, 50)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	c, err := New(Config{MaxChunkSize: 80, Overlap: 16})
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 30)
	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestReconstructIsLossless(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		text string
	}{
		{"plain ascii", Config{MaxChunkSize: 40, Overlap: 8}, strings.Repeat("packages are units of compilation ", 25)},
		{"no whitespace", Config{MaxChunkSize: 32, Overlap: 4}, strings.Repeat("x", 500)},
		{"multibyte runes", Config{MaxChunkSize: 25, Overlap: 5}, strings.Repeat("данные домена и поиск ", 40)},
		{"zero overlap", Config{MaxChunkSize: 64, Overlap: 0}, strings.Repeat("alpha beta gamma delta ", 30)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.cfg)
			require.NoError(t, err)
			chunks := c.Split(tc.text)
			assert.Equal(t, tc.text, Reconstruct(chunks))
		})
	}
}

func TestReconstructIsLosslessOnRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefg hijklmn opqrstu vwxyz \n")

	for i := 0; i < 50; i++ {
		size := 16 + rng.Intn(240)
		overlap := rng.Intn(size + 8)
		var sb strings.Builder
		for j := 0; j < 200+rng.Intn(3000); j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()

		c, err := New(Config{MaxChunkSize: size, Overlap: overlap})
		if overlap >= size {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, text, Reconstruct(c.Split(text)), "size=%d overlap=%d", size, overlap)
	}
}
