package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/abhisek/rounds/internal/store"
)

const (
	ChunkSize    = 800
	ChunkOverlap = 100

	// pageProbeLen is how much of a chunk's head is searched for in page
	// text to attribute the chunk to a page.
	pageProbeLen = 100
)

var separators = []string{"\n## ", "\n### ", "\n\n", "\n", ". ", " "}

// Splitter cuts page text into classified chunks.
type Splitter struct {
	splitter textsplitter.TextSplitter
}

func NewSplitter() *Splitter {
	return &Splitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(ChunkSize),
			textsplitter.WithChunkOverlap(ChunkOverlap),
			textsplitter.WithSeparators(separators),
		),
	}
}

// Split joins the pages, splits the result and returns one classified chunk
// per piece in document order. pages[i] is page i+1; blank pages keep their
// number but never receive chunks.
func (s *Splitter) Split(pages []string) ([]store.Chunk, error) {
	var nonEmpty []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, nil
	}

	pieces, err := s.splitter.SplitText(strings.Join(nonEmpty, "\n\n"))
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	chunks := make([]store.Chunk, 0, len(pieces))
	section := ""
	for _, piece := range pieces {
		text := strings.TrimSpace(piece)
		if text == "" {
			continue
		}
		first, _, _ := strings.Cut(text, "\n")
		if h := heading(first); h != "" {
			section = h
		}
		chunks = append(chunks, store.Chunk{
			Text:    text,
			Page:    pageOf(piece, pages),
			Section: section,
			Kind:    Classify(text),
		})
		if h := lastHeading(text); h != "" {
			section = h
		}
	}
	return chunks, nil
}

// pageOf returns the 1-based number of the first page containing the head of
// piece, or 1.
func pageOf(piece string, pages []string) int {
	probe := piece
	if utf8.RuneCountInString(probe) > pageProbeLen {
		probe = string([]rune(probe)[:pageProbeLen])
	}
	for i, p := range pages {
		if strings.Contains(p, probe) {
			return i + 1
		}
	}
	return 1
}

// lastHeading returns the last markdown "##"/"###" heading in text.
func lastHeading(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if h := heading(lines[i]); h != "" {
			return h
		}
	}
	return ""
}

func heading(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ") {
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	return ""
}
