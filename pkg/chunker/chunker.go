package chunker

import (
	"unicode"

	"doc-domains-be/internal/apperrors"
)

// Config controls how documents are split. MaxChunkSize and Overlap are
// measured in runes so multi-byte text never gets cut mid-character.
type Config struct {
	MaxChunkSize int
	Overlap      int
	// BoundaryLookback is how far back from the hard cut we search for a
	// whitespace break. Zero picks a default of MaxChunkSize/10.
	BoundaryLookback int
}

// Chunk is one bounded span of the source text. Start/End are rune offsets
// into the original document, so Text == runes[Start:End] always holds.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

type Chunker struct {
	cfg Config
}

func New(cfg Config) (*Chunker, error) {
	if cfg.MaxChunkSize <= 0 {
		return nil, apperrors.ConfigurationError("chunker: max chunk size must be positive, got %d", cfg.MaxChunkSize)
	}
	if cfg.Overlap < 0 {
		return nil, apperrors.ConfigurationError("chunker: overlap must not be negative, got %d", cfg.Overlap)
	}
	if cfg.Overlap >= cfg.MaxChunkSize {
		return nil, apperrors.ConfigurationError("chunker: overlap %d must be smaller than max chunk size %d", cfg.Overlap, cfg.MaxChunkSize)
	}
	if cfg.BoundaryLookback <= 0 {
		cfg.BoundaryLookback = cfg.MaxChunkSize / 10
	}
	if cfg.BoundaryLookback >= cfg.MaxChunkSize {
		cfg.BoundaryLookback = cfg.MaxChunkSize - 1
	}
	return &Chunker{cfg: cfg}, nil
}

// Split produces the ordered chunk sequence for text. The result is a pure
// function of (text, config): re-running it over unchanged input yields
// identical boundaries, which the ingestion pipeline relies on for
// idempotent point IDs.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if total <= c.cfg.MaxChunkSize {
		return []Chunk{{Index: 0, Start: 0, End: total, Text: text}}
	}

	var chunks []Chunk
	start := 0
	for start < total {
		end := start + c.cfg.MaxChunkSize
		if end >= total {
			end = total
		} else {
			end = c.preferBreak(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end == total {
			break
		}

		next := end - c.cfg.Overlap
		if next <= start {
			// Forward progress must hold even when a boundary cut made the
			// chunk shorter than the overlap.
			next = end
		}
		start = next
	}

	return chunks
}

// preferBreak moves the cut back to the last whitespace inside the lookback
// window, so chunks end on word boundaries when the text allows it.
func (c *Chunker) preferBreak(runes []rune, start, hardEnd int) int {
	limit := hardEnd - c.cfg.BoundaryLookback
	if limit <= start {
		limit = start + 1
	}
	for j := hardEnd; j > limit; j-- {
		if unicode.IsSpace(runes[j-1]) {
			return j
		}
	}
	return hardEnd
}

// Reconstruct joins chunks back into the original text by dropping each
// chunk's overlap with its predecessor. Split and Reconstruct are exact
// inverses for any valid config.
func Reconstruct(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	runes := []rune(chunks[0].Text)
	prevEnd := chunks[0].End
	for _, ch := range chunks[1:] {
		tail := []rune(ch.Text)
		skip := prevEnd - ch.Start
		if skip < 0 {
			skip = 0
		}
		if skip > len(tail) {
			skip = len(tail)
		}
		runes = append(runes, tail[skip:]...)
		prevEnd = ch.End
	}
	return string(runes)
}
