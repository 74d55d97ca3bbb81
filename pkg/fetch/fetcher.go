// Package fetch retrieves page content for the research engine. Pages
// are stripped down to plain text and size-capped so that a single
// document cannot swamp the model's context window.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mikeboe/deep-research/pkg/research"
)

// DefaultMaxContentBytes caps the plain text kept per document.
const DefaultMaxContentBytes = 64 * 1024

// HTTPFetcher downloads URLs over plain HTTP and strips markup.
type HTTPFetcher struct {
	Client          *http.Client
	MaxContentBytes int
	Logger          *slog.Logger
}

// NewHTTP creates an HTTP fetcher with a modest timeout.
func NewHTTP() *HTTPFetcher {
	return &HTTPFetcher{
		Client:          &http.Client{Timeout: 15 * time.Second},
		MaxContentBytes: DefaultMaxContentBytes,
		Logger:          slog.Default(),
	}
}

// Fetch downloads each URL in turn. Documents that fail to download are
// logged and omitted from the result; Fetch itself only fails when the
// context is cancelled.
func (f *HTTPFetcher) Fetch(ctx context.Context, urls []string) ([]research.FetchedDocument, error) {
	var docs []research.FetchedDocument
	for _, u := range urls {
		if ctx.Err() != nil {
			return docs, ctx.Err()
		}
		content, err := f.fetchOne(ctx, u)
		if err != nil {
			f.Logger.Warn("Failed to fetch content", "url", u, "error", err)
			continue
		}
		docs = append(docs, research.FetchedDocument{URL: u, Content: content})
	}
	return docs, nil
}

func (f *HTTPFetcher) fetchOne(ctx context.Context, rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := StripHTML(string(body))
	maxBytes := f.MaxContentBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContentBytes
	}
	if len(text) > maxBytes {
		text = text[:maxBytes]
	}
	return text, nil
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reChrome     = regexp.MustCompile(`(?is)<(nav|header|footer)[^>]*>.*?</(nav|header|footer)>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes scripts, styles, and page chrome, then all remaining
// tags, and collapses whitespace into readable plain text.
func StripHTML(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reChrome.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	s = replacer.Replace(s)

	s = reSpaces.ReplaceAllString(s, " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
