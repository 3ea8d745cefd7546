package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSupported(t *testing.T) {
	p := New()
	assert.True(t, p.Supported("notes.txt"))
	assert.True(t, p.Supported("README.MD"))
	assert.True(t, p.Supported("guide.rst"))
	assert.True(t, p.Supported("paper.pdf"))
	assert.False(t, p.Supported("image.png"))
	assert.False(t, p.Supported("archive.tar.gz"))
	assert.False(t, p.Supported("noextension"))
}

func TestExtractPlainText(t *testing.T) {
	p := New()
	path := writeTemp(t, "doc.md", []byte("# Title\n\nsome body text"))

	text, err := p.Extract(path, "doc.md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nsome body text", text)
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	p := New()
	path := writeTemp(t, "broken.txt", []byte{0xff, 0xfe, 0x41})

	_, err := p.Extract(path, "broken.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCorruptFile))
}

func TestExtractUnknownFormat(t *testing.T) {
	p := New()
	path := writeTemp(t, "data.bin", []byte("whatever"))

	_, err := p.Extract(path, "data.bin")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsupportedFormat))
}

func TestExtractCorruptPDF(t *testing.T) {
	p := New()
	path := writeTemp(t, "fake.pdf", []byte("this is not a pdf"))

	_, err := p.Extract(path, "fake.pdf")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCorruptFile))
}
