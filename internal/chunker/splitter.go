// Package chunker splits extracted text into overlapping, size-bounded chunks
// that prefer natural boundaries.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators are tried in order; "" cuts between characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one piece of split text.
type Chunk struct {
	Index  int
	Text   string
	Offset int // Byte offset of Text in the source
}

// Splitter performs recursive boundary-aware splitting.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

type piece struct {
	text   string
	runes  int
	offset int
}

// Split returns the chunks of text in order. Empty or blank text yields none.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := s.split(text, separators)
	pieces := make([]piece, 0, len(parts))
	offset := 0
	for _, p := range parts {
		pieces = append(pieces, piece{text: p, runes: utf8.RuneCountInString(p), offset: offset})
		offset += len(p)
	}

	return s.merge(pieces)
}

// split breaks text at the first separator that occurs in it, recursing with
// the finer separators on parts that are still too long. Parts keep their
// trailing separator, so their concatenation is text.
func (s *Splitter) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	for i, sep := range seps {
		parts := strings.SplitAfter(text, sep)
		if len(parts) < 2 {
			continue
		}

		var out []string
		for _, part := range parts {
			if part == "" {
				continue
			}
			out = append(out, s.split(part, seps[i+1:])...)
		}
		return out
	}

	return []string{text}
}

// merge packs pieces greedily into chunks. After each emitted chunk the
// window keeps its trailing pieces that fit in the overlap budget.
func (s *Splitter) merge(pieces []piece) []Chunk {
	var chunks []Chunk
	var window []piece
	total := 0

	emit := func() {
		if c, ok := s.build(window, len(chunks)); ok {
			chunks = append(chunks, c)
		}
	}

	for _, p := range pieces {
		if total+p.runes > s.chunkSize && total > 0 {
			emit()
			for total > s.overlap || (total+p.runes > s.chunkSize && total > 0) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.runes
	}
	if len(window) > 0 {
		emit()
	}

	return chunks
}

func (s *Splitter) build(window []piece, index int) (Chunk, bool) {
	var b strings.Builder
	for _, p := range window {
		b.WriteString(p.text)
	}
	joined := b.String()

	left := strings.TrimLeftFunc(joined, unicode.IsSpace)
	text := strings.TrimRightFunc(left, unicode.IsSpace)
	if text == "" {
		return Chunk{}, false
	}

	return Chunk{
		Index:  index,
		Text:   text,
		Offset: window[0].offset + len(joined) - len(left),
	}, true
}
