// Package splitter provides recursive text splitting and token-budget
// trimming for prompt construction. Oversized prompt fragments are cut at
// the coarsest separator available so that trimmed text stays readable.
package splitter

import "strings"

// DefaultSeparators are tried in priority order: paragraph break, line
// break, sentence-ending period, comma, space, and finally character-level.
var DefaultSeparators = []string{"\n\n", "\n", ".", ",", " ", ""}

// RecursiveCharacterTextSplitter splits text into chunks no larger than
// ChunkSize characters, preferring coarse separators and keeping a
// sliding-window overlap between adjacent chunks.
type RecursiveCharacterTextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveCharacterTextSplitter creates a splitter with the default
// separator priority list.
func NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap int) *RecursiveCharacterTextSplitter {
	return &RecursiveCharacterTextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// SplitText splits text recursively using the first separator that occurs
// in it. Fragments shorter than ChunkSize accumulate into a pending group;
// an oversized fragment flushes the group and is split again.
func (s *RecursiveCharacterTextSplitter) SplitText(text string) []string {
	separator := s.Separators[len(s.Separators)-1]
	for _, sep := range s.Separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, separator)
	}

	var finalChunks []string
	var goodSplits []string
	for _, split := range splits {
		if len(split) < s.ChunkSize {
			goodSplits = append(goodSplits, split)
			continue
		}
		if len(goodSplits) > 0 {
			finalChunks = append(finalChunks, s.mergeSplits(goodSplits, separator)...)
			goodSplits = nil
		}
		finalChunks = append(finalChunks, s.SplitText(split)...)
	}
	if len(goodSplits) > 0 {
		finalChunks = append(finalChunks, s.mergeSplits(goodSplits, separator)...)
	}

	return finalChunks
}

// mergeSplits greedily accumulates fragments into chunks. When the next
// fragment would push the running length to ChunkSize or beyond, the
// current chunk is closed and fragments are dropped from the front of the
// window until the carried length is within ChunkOverlap.
func (s *RecursiveCharacterTextSplitter) mergeSplits(splits []string, separator string) []string {
	var docs []string
	var current []string
	totalLength := 0

	for _, part := range splits {
		if totalLength+len(part) >= s.ChunkSize {
			if len(current) > 0 {
				docs = append(docs, strings.TrimSpace(strings.Join(current, separator)))
				for totalLength > s.ChunkOverlap && len(current) > 0 {
					totalLength -= len(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, part)
		totalLength += len(part)
	}
	if len(current) > 0 {
		docs = append(docs, strings.TrimSpace(strings.Join(current, separator)))
	}

	return docs
}
