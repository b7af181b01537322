// Package pagecontext builds the lookup context of a note from the web page
// a term was found on.
package pagecontext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/japaniel/cardsmith/pkg/japanese"
	"github.com/japaniel/cardsmith/pkg/notedata"
)

// MaxBodySize caps the fetched HTML.
const MaxBodySize = 10 << 20

// Page is an extracted article.
type Page struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// Fetcher downloads pages.
type Fetcher struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (f *Fetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Fetch downloads rawURL and extracts its article.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// some sites block clients that do not look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("Content-Length %d exceeds limit of %d bytes", resp.ContentLength, MaxBodySize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", MaxBodySize)
	}

	page, err := Extract(body, pageURL)
	if err != nil {
		return nil, err
	}
	f.logger().Debug("page extracted", "url", rawURL, "title", page.Title, "chars", utf8.RuneCountInString(page.Text))
	return page, nil
}

// Extract runs readability over html with ruby annotations removed.
func Extract(html []byte, pageURL *url.URL) (*Page, error) {
	article, err := readability.FromReader(bytes.NewReader(japanese.SanitizeRuby(html)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	p := &Page{
		Title:    strings.TrimSpace(article.Title),
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     article.TextContent,
	}
	if pageURL != nil {
		p.URL = pageURL.String()
	}
	return p, nil
}

// Context returns the lookup context for term on the page. The sentence is
// empty when the page does not contain term.
func (p *Page) Context(term string) notedata.Context {
	c := notedata.Context{
		URL:           p.URL,
		DocumentTitle: p.Title,
		Query:         term,
		FullQuery:     term,
	}
	if s, offset, ok := Locate(p.Text, term); ok {
		c.Sentence = notedata.Sentence{Text: s, Offset: offset}
	}
	return c
}

// Locate finds the first sentence of text containing term. It returns the
// sentence with surrounding space trimmed and the rune offset of term in it.
func Locate(text, term string) (string, int, bool) {
	if term == "" {
		return "", 0, false
	}
	for _, s := range japanese.SplitSentences(text) {
		s = strings.TrimSpace(s)
		i := strings.Index(s, term)
		if i < 0 {
			continue
		}
		return s, utf8.RuneCountInString(s[:i]), true
	}
	return "", 0, false
}
