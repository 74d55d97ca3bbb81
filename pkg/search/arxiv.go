package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/deep-research/pkg/research"
)

const arxivEndpoint = "https://export.arxiv.org/api/query"

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type arxivEntry struct {
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	Link    []arxivLink `xml:"link"`
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

// Arxiv searches academic papers through the arXiv Atom API. Useful for
// scientific queries where web results are too shallow.
type Arxiv struct {
	Client *http.Client
	// Endpoint overrides the arXiv API URL. Empty means the real one.
	Endpoint string
}

// NewArxiv creates an arXiv search provider.
func NewArxiv() *Arxiv {
	return &Arxiv{Client: &http.Client{Timeout: 15 * time.Second}}
}

// Search queries the arXiv API and maps the Atom feed entries to search
// results. The abstract page link is preferred; when only a PDF link is
// present that one is used instead.
func (a *Arxiv) Search(ctx context.Context, query string, maxResults int) ([]research.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = arxivEndpoint
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed: %w", err)
	}

	var results []research.SearchResult
	for _, entry := range feed.Entry {
		if len(results) >= maxResults {
			break
		}
		link := entryURL(entry.Link)
		if link == "" {
			continue
		}
		results = append(results, research.SearchResult{
			Title:   collapseSpace(entry.Title),
			URL:     link,
			Snippet: collapseSpace(entry.Summary),
		})
	}
	return results, nil
}

// entryURL picks the abstract page link, falling back to the PDF link.
func entryURL(links []arxivLink) string {
	pdf := ""
	for _, l := range links {
		switch l.Type {
		case "text/html":
			return l.Href
		case "application/pdf":
			pdf = l.Href
		}
	}
	if pdf != "" {
		return pdf
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

var spacePattern = strings.NewReplacer("\n", " ", "\t", " ")

// collapseSpace folds the multi-line whitespace arXiv puts in titles and
// abstracts into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(spacePattern.Replace(s)), " ")
}
