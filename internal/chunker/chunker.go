package chunker

import (
	"fmt"
	"strings"

	"ragchat/internal/domain"
)

// Default splitting parameters, matching the ingestion defaults used for the
// document corpus.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 75
)

// separators are tried coarsest first: paragraph, line, sentence, word.
// A segment that fits no separator is hard-cut at rune boundaries.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits page text into pieces of at most chunkSize runes,
// preferring paragraph boundaries, then sentence boundaries, then hard
// character boundaries. Consecutive pieces share up to overlap trailing runes.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. Overlap is clamped to stay strictly below
// the chunk size; non-positive sizes fall back to the defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the ordered pieces of text. Empty or whitespace-only input
// yields no pieces; input that already fits yields exactly one.
// The same input always yields the same ordered sequence.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}
	segments := s.segment(runes, 0)
	return s.merge(segments)
}

// segment recursively cuts runes into in-order segments of at most chunkSize
// runes, descending through the separator hierarchy. Hard cuts at the last
// level already apply the overlap stepping, so merge leaves them untouched.
func (s *Splitter) segment(runes []rune, sepIdx int) []segment {
	if len(runes) <= s.chunkSize {
		return []segment{{runes: runes}}
	}
	if sepIdx >= len(separators) {
		return s.hardCut(runes)
	}
	sep := separators[sepIdx]
	parts := splitAfter(string(runes), sep)
	if len(parts) == 1 {
		return s.segment(runes, sepIdx+1)
	}
	var out []segment
	for _, part := range parts {
		pr := []rune(part)
		if len(pr) > s.chunkSize {
			out = append(out, s.segment(pr, sepIdx+1)...)
			continue
		}
		out = append(out, segment{runes: pr})
	}
	return out
}

// hardCut slices an unbreakable run of runes into final, already-overlapped
// pieces using a fixed stride of chunkSize-overlap.
func (s *Splitter) hardCut(runes []rune) []segment {
	step := s.chunkSize - s.overlap
	var out []segment
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, segment{runes: runes[start:end], final: true})
		if end == len(runes) {
			break
		}
	}
	return out
}

// merge greedily packs consecutive segments into chunks of at most chunkSize
// runes, seeding each new chunk with the previous chunk's trailing overlap
// when it fits.
func (s *Splitter) merge(segments []segment) []string {
	var out []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			out = append(out, string(current))
		}
		current = nil
	}
	for _, seg := range segments {
		if seg.final {
			flush()
			out = append(out, string(seg.runes))
			continue
		}
		if len(current) == 0 && len(out) > 0 && s.overlap > 0 {
			tail := trailing([]rune(out[len(out)-1]), s.overlap)
			if len(tail)+len(seg.runes) <= s.chunkSize {
				current = append(current, tail...)
			}
		}
		if len(current)+len(seg.runes) > s.chunkSize {
			flush()
			if len(out) > 0 && s.overlap > 0 {
				tail := trailing([]rune(out[len(out)-1]), s.overlap)
				if len(tail)+len(seg.runes) <= s.chunkSize {
					current = append(current, tail...)
				}
			}
		}
		current = append(current, seg.runes...)
	}
	flush()
	return out
}

type segment struct {
	runes []rune
	final bool
}

// splitAfter splits keeping the separator attached to the preceding part,
// so no characters are lost across chunk boundaries.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter may leave a trailing empty part when text ends in sep.
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

func trailing(runes []rune, n int) []rune {
	if len(runes) <= n {
		return runes
	}
	return runes[len(runes)-n:]
}

// AssignIDs walks chunks in document order and assigns each its deterministic
// identity "<document>:<page>:<seq>". The sequence counter increments while
// consecutive chunks share a page and resets when the page changes, exactly
// reproducible from the same input.
func AssignIDs(chunks []domain.Chunk) []domain.Chunk {
	lastPageID := ""
	seq := 0
	for i := range chunks {
		pageID := chunks[i].PageID()
		if pageID == lastPageID {
			seq++
		} else {
			seq = 0
		}
		chunks[i].Seq = seq
		chunks[i].ID = fmt.Sprintf("%s:%d", pageID, seq)
		lastPageID = pageID
	}
	return chunks
}
