package splitter

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMinChunkSize is the floor for the estimated character budget when
// trimming, so that pathological overshoot estimates cannot collapse the
// prompt to nothing.
const DefaultMinChunkSize = 140

const encodingName = "o200k_base"

// TokenCounter reports the token length of a text under a fixed tokenizer.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens using the o200k_base encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the o200k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates token counts at roughly four characters per
// token. Used as a fallback when the tiktoken encoding cannot be loaded.
type EstimateCounter struct{}

// Count returns a rough token estimate for text.
func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// Trimmer cuts prompts down to a token budget.
type Trimmer struct {
	Counter      TokenCounter
	MinChunkSize int
}

// NewTrimmer creates a Trimmer using the given token counter.
func NewTrimmer(counter TokenCounter) *Trimmer {
	return &Trimmer{Counter: counter, MinChunkSize: DefaultMinChunkSize}
}

// lazyCounter defers loading the tiktoken encoding until the first count,
// falling back to the character estimate if it cannot be loaded.
type lazyCounter struct {
	once    sync.Once
	counter TokenCounter
}

func (l *lazyCounter) Count(text string) int {
	l.once.Do(func() {
		if counter, err := NewTiktokenCounter(); err == nil {
			l.counter = counter
		} else {
			l.counter = EstimateCounter{}
		}
	})
	return l.counter.Count(text)
}

var defaultCounter = &lazyCounter{}

// DefaultTrimmer returns a trimmer backed by the shared tiktoken counter.
func DefaultTrimmer() *Trimmer {
	return NewTrimmer(defaultCounter)
}

// Trim returns prompt unchanged when it fits within contextSize tokens.
// Otherwise it estimates a character budget proportional to the overshoot,
// splits at the coarsest separator within that budget, keeps the first
// chunk, and repeats until the text fits or stops shrinking.
func (t *Trimmer) Trim(prompt string, contextSize int) string {
	minChunk := t.MinChunkSize
	if minChunk <= 0 {
		minChunk = DefaultMinChunkSize
	}

	current := prompt
	for current != "" {
		length := t.Counter.Count(current)
		if length <= contextSize {
			return current
		}

		overflowTokens := length - contextSize
		chunkSize := len(current) - overflowTokens*3
		if chunkSize < minChunk {
			chunkSize = minChunk
		}

		chunks := NewRecursiveCharacterTextSplitter(chunkSize, 0).SplitText(current)
		if len(chunks) == 0 {
			return ""
		}
		trimmed := chunks[0]
		if len(trimmed) == len(current) {
			// No progress; the text cannot be split further.
			return trimmed
		}
		current = trimmed
	}
	return current
}
