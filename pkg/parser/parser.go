package parser

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"doc-domains-be/internal/apperrors"
)

// Parser extracts plain text from uploaded source files. Format is decided
// by extension; content that cannot be decoded surfaces as CorruptFile so
// ingestion can record a per-file error instead of failing the batch.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Supported reports whether the file extension maps to a known format.
func (p *Parser) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".rst", ".pdf":
		return true
	default:
		return false
	}
}

// Extract returns the plain text of the file at path. The filename decides
// the format; path is where the bytes actually live.
func (p *Parser) Extract(path, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".rst":
		return p.extractPlain(path, filename)
	case ".pdf":
		return p.extractPDF(path, filename)
	default:
		return "", apperrors.New(apperrors.KindUnsupportedFormat, "unsupported file format %q for %s", ext, filename)
	}
}

func (p *Parser) extractPlain(path, filename string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindCorruptFile, err, "read %s", filename)
	}
	if !utf8.Valid(data) {
		return "", apperrors.New(apperrors.KindCorruptFile, "%s is not valid UTF-8", filename)
	}
	return string(data), nil
}

func (p *Parser) extractPDF(path, filename string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindCorruptFile, err, "open pdf %s", filename)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindCorruptFile, err, "extract text from %s", filename)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, reader); err != nil {
		return "", apperrors.Wrap(apperrors.KindCorruptFile, err, "read extracted text of %s", filename)
	}
	return strings.TrimSpace(sb.String()), nil
}
