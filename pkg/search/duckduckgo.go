// Package search provides web search providers for the research engine.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mikeboe/deep-research/pkg/research"
)

const liteEndpoint = "https://lite.duckduckgo.com/lite/"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGo searches the web by scraping DuckDuckGo's lite HTML
// interface, which needs no API key.
type DuckDuckGo struct {
	Client *http.Client
	// Endpoint overrides the lite endpoint URL. Empty means the real one.
	Endpoint string
}

// NewDuckDuckGo creates a DuckDuckGo search provider with a modest
// timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{Client: &http.Client{Timeout: 15 * time.Second}}
}

// Search posts the query to the lite endpoint and parses the result list
// out of the returned HTML. At most maxResults results are returned; 429
// responses are retried with doubling backoff.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]research.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = liteEndpoint
	}

	form := url.Values{}
	form.Set("q", query)

	var resp *http.Response
	backoff := time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.Client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseLiteResults(string(body), maxResults), nil
}

var (
	resultLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	resultLinkAltPattern = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	resultSnippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)
	anyLinkPattern       = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
)

// parseLiteResults extracts up to maxResults search results from the lite
// HTML page.
func parseLiteResults(html string, maxResults int) []research.SearchResult {
	matches := resultLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = resultLinkAltPattern.FindAllStringSubmatch(html, -1)
	}
	snippets := resultSnippetPattern.FindAllStringSubmatch(html, -1)

	var results []research.SearchResult
	for i, match := range matches {
		if len(results) >= maxResults {
			break
		}
		resultURL := strings.TrimSpace(match[1])
		title := decodeEntities(strings.TrimSpace(match[2]))
		if resultURL == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = decodeEntities(snippets[i][1])
		}
		results = append(results, research.SearchResult{
			Title:   title,
			URL:     resultURL,
			Snippet: snippet,
		})
	}

	if len(results) == 0 {
		results = parseAnyLinks(html, maxResults)
	}
	return results
}

// parseAnyLinks is a fallback for when the lite page markup changes: it
// collects external-looking links, skipping DuckDuckGo navigation.
func parseAnyLinks(html string, maxResults int) []research.SearchResult {
	var results []research.SearchResult
	seen := make(map[string]bool)

	for _, match := range anyLinkPattern.FindAllStringSubmatch(html, -1) {
		if len(results) >= maxResults {
			break
		}
		link := strings.TrimSpace(match[1])
		title := decodeEntities(strings.TrimSpace(match[2]))

		if strings.Contains(link, "duckduckgo.com") ||
			strings.HasPrefix(link, "/") ||
			strings.HasPrefix(link, "#") ||
			strings.HasPrefix(link, "javascript:") {
			continue
		}
		if len(title) < 5 || seen[link] {
			continue
		}
		seen[link] = true
		results = append(results, research.SearchResult{Title: title, URL: link})
	}
	return results
}

// decodeEntities strips tags and decodes the handful of HTML entities the
// lite page uses.
func decodeEntities(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
