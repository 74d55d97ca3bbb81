package search

import (
	"strings"

	"github.com/mikeboe/deep-research/pkg/research"
)

// ByName returns the search provider for a configured name. Unknown
// names fall back to DuckDuckGo.
func ByName(name string) research.SearchProvider {
	if strings.EqualFold(strings.TrimSpace(name), "arxiv") {
		return NewArxiv()
	}
	return NewDuckDuckGo()
}
