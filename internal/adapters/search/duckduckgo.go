// Package search provides the DuckDuckGo-backed implementation of
// ports.SearchService used to build web-answer trainsets and to serve
// live question answering.
package search

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/retry"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

const (
	defaultSearchURL = "https://html.duckduckgo.com/html/"
	defaultRegion    = "us-en"
	searchTimeout    = 15 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; PromptMender/1.0)"

	// fetched page content is truncated to keep judge prompts bounded
	maxContentLength = 5000
)

// DuckDuckGo searches via the DuckDuckGo HTML endpoint, which needs no
// API key. Result pages can optionally be reduced to readable markdown.
type DuckDuckGo struct {
	client      *http.Client
	searchURL   string
	region      string
	retryConfig retry.BackoffConfig
}

// Option configures the search adapter
type Option func(*DuckDuckGo)

// WithSearchURL overrides the search endpoint, used in tests
func WithSearchURL(u string) Option {
	return func(d *DuckDuckGo) {
		d.searchURL = u
	}
}

// WithRegion sets the DuckDuckGo region code, e.g. "us-en"
func WithRegion(region string) Option {
	return func(d *DuckDuckGo) {
		if region != "" {
			d.region = region
		}
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(d *DuckDuckGo) {
		d.client = client
	}
}

// NewDuckDuckGo creates a search adapter
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		client: &http.Client{
			Timeout: searchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		searchURL:   defaultSearchURL,
		region:      defaultRegion,
		retryConfig: retry.HTTPConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search runs a query and returns up to maxResults hits with title,
// URL and snippet.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if maxResults < 1 {
		maxResults = 1
	}

	var body *goquery.Document
	err := retry.WithBackoffHTTP(ctx, d.retryConfig, func() (int, error) {
		doc, status, err := d.fetchResults(ctx, query)
		if err == nil {
			body = doc
		}
		return status, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}

	results := parseResults(body, maxResults)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrNoSearchResults, query)
	}
	return results, nil
}

// SearchWithContent runs a query and additionally reduces each result
// page to readable markdown. Pages that cannot be fetched keep their
// snippet only.
func (d *DuckDuckGo) SearchWithContent(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	results, err := d.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	for i := range results {
		content, err := d.FetchContent(ctx, results[i].URL)
		if err != nil {
			log.Printf("search: failed to fetch %s: %v", results[i].URL, err)
			continue
		}
		results[i].Content = content
	}
	return results, nil
}

func (d *DuckDuckGo) fetchResults(ctx context.Context, query string) (*goquery.Document, int, error) {
	form := url.Values{}
	form.Set("q", query)
	form.Set("b", "")
	form.Set("kl", d.region)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.searchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse results page: %w", err)
	}
	return doc, resp.StatusCode, nil
}

func parseResults(doc *goquery.Document, limit int) []*ports.SearchResult {
	var results []*ports.SearchResult

	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if len(results) >= limit {
			return
		}

		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		href = resolveRedirect(href)
		if href == "" || strings.Contains(href, "duckduckgo.com") || strings.HasPrefix(href, "/") {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		results = append(results, &ports.SearchResult{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
	})

	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// target URL.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// FetchContent fetches a page, extracts the readable article, and
// converts it to markdown truncated to a bounded length.
func (d *DuckDuckGo) FetchContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if len(markdown) > maxContentLength {
		markdown = markdown[:maxContentLength] + "\n[truncated...]"
	}
	return markdown, nil
}
