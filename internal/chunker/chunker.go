// Package chunker provides sentence-aligned, bounded-size text chunking.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMaxLen is the default maximum chunk length in characters.
const DefaultMaxLen = 500

// boundaryPattern matches a sentence boundary: terminator punctuation
// followed by whitespace or end of input. Punctuation inside a token
// (decimals, abbreviations) is not a boundary.
var boundaryPattern = regexp.MustCompile(`[.!?]+(\s+|$)`)

// splitSentences cuts text after each boundary, keeping the terminator
// with its sentence. A trailing fragment with no terminator is kept.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range boundaryPattern.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Chunker splits long text into sentence-aligned segments no longer than
// maxLen characters (a single sentence longer than maxLen still becomes
// one chunk; sentences are never split).
type Chunker struct {
	maxLen int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxLen sets the maximum chunk length in characters.
func WithMaxLen(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxLen = n
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxLen: DefaultMaxLen}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxLen returns the configured maximum chunk length.
func (c *Chunker) MaxLen() int {
	return c.maxLen
}

// Split breaks text into chunks. The result is never empty unless text is
// empty, and no sentence is dropped or reordered: joining the chunks with
// single spaces reproduces every sentence of the input in original order.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.maxLen {
		// Short text is returned unmodified, no sentence analysis.
		return []string{text}
	}

	sentences := splitSentences(text)
	var usable []string
	for _, s := range sentences {
		if s = strings.TrimSpace(s); s != "" {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		// Degenerate input (e.g. whitespace only); never drop content.
		return []string{text}
	}

	var chunks []string
	var buf strings.Builder
	for _, sentence := range usable {
		if buf.Len() > 0 && buf.Len()+1+len(sentence) > c.maxLen {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
