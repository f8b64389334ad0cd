package chunker

import (
	"regexp"
	"strings"

	"docrag/internal/token"
)

// Piece is one chunk of a source document: the raw segment plus the section
// heading it appeared under.
type Piece struct {
	Heading string
	Text    string
}

// Contextualize returns the text enriched with its section heading, the form
// used for embedding and for model context.
func (p Piece) Contextualize() string {
	if p.Heading == "" {
		return p.Text
	}
	return p.Heading + "\n" + p.Text
}

// SectionChunker splits document text into heading-delimited sections and
// packs each section's sentences into chunks under a token budget, with
// sentence overlap between consecutive chunks.
type SectionChunker struct {
	maxTokens        int
	overlapSentences int
	counter          *token.Counter
	splitter         *regexp.Regexp
}

func New(maxTokens, overlapSentences int, counter *token.Counter) *SectionChunker {
	if maxTokens <= 0 {
		maxTokens = 320
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if counter == nil {
		counter = token.NewCounter()
	}
	return &SectionChunker{
		maxTokens:        maxTokens,
		overlapSentences: overlapSentences,
		counter:          counter,
		splitter:         regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// CountTokens reports the token count of s under the chunker's tokenizer,
// the same units the embedding budget uses.
func (c *SectionChunker) CountTokens(s string) int {
	return c.counter.Count(s)
}

// Chunk produces the ordered, finite chunk sequence for the document text.
func (c *SectionChunker) Chunk(text string) []Piece {
	var pieces []Piece
	heading := ""
	for _, para := range splitParagraphs(text) {
		if h, ok := asHeading(para); ok {
			heading = h
			continue
		}
		pieces = append(pieces, c.chunkParagraph(heading, para)...)
	}
	return pieces
}

func (c *SectionChunker) chunkParagraph(heading, para string) []Piece {
	var sentences []string
	last := 0
	for _, m := range c.splitter.FindAllStringIndex(para, -1) {
		sentences = append(sentences, para[m[0]:m[1]])
		last = m[1]
	}
	// an unterminated tail is still content
	if tail := strings.TrimSpace(para[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) == 0 {
		return nil
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	var pieces []Piece
	i := 0
	for i < len(sentences) {
		end := i + 1
		tokens := c.counter.Count(sentences[i])
		for end < len(sentences) {
			next := c.counter.Count(sentences[end])
			if tokens+next > c.maxTokens {
				break
			}
			tokens += next
			end++
		}
		pieces = append(pieces, Piece{Heading: heading, Text: strings.Join(sentences[i:end], " ")})
		if end == len(sentences) {
			break
		}
		next := end - c.overlapSentences
		if next <= i {
			// overlap would stall the scan; a single-sentence chunk cannot
			// overlap with its successor
			next = end
		}
		i = next
	}
	return pieces
}

func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		// A heading-looking line ends its paragraph on both sides.
		if _, ok := asHeading(line); ok && len(cur) > 0 {
			flush()
		}
		cur = append(cur, line)
		if _, ok := asHeading(line); ok {
			flush()
		}
	}
	flush()
	return paras
}

// asHeading reports whether a paragraph looks like a section heading: a
// markdown heading, or a short line without terminal punctuation.
func asHeading(para string) (string, bool) {
	para = strings.TrimSpace(para)
	if para == "" {
		return "", false
	}
	if strings.HasPrefix(para, "#") {
		return strings.TrimSpace(strings.TrimLeft(para, "#")), true
	}
	if strings.ContainsAny(para, "\n") {
		return "", false
	}
	words := strings.Fields(para)
	if len(words) == 0 || len(words) > 8 {
		return "", false
	}
	last := para[len(para)-1]
	switch last {
	case '.', '!', '?', ':', ';', ',':
		return "", false
	}
	return para, true
}
