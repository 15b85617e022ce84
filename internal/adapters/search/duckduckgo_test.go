package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

const resultsPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="https://go.dev/blog/go1.25">Go 1.25 is released</a>
  <a class="result__snippet" href="https://go.dev/blog/go1.25">Go 1.25 brings faster builds.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fnotes&amp;rut=abc">Release notes</a>
  <a class="result__snippet" href="#">Full release notes.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="/internal">Internal link</a>
</div>
</body></html>`

func TestSearch(t *testing.T) {
	var gotQuery, gotRegion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.FormValue("q")
		gotRegion = r.FormValue("kl")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, resultsPage)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(WithSearchURL(server.URL), WithRegion("de-de"))

	results, err := ddg.Search(context.Background(), "go 1.25 release", 10)
	require.NoError(t, err)
	assert.Equal(t, "go 1.25 release", gotQuery)
	assert.Equal(t, "de-de", gotRegion)

	require.Len(t, results, 2, "internal links should be skipped")
	assert.Equal(t, "Go 1.25 is released", results[0].Title)
	assert.Equal(t, "https://go.dev/blog/go1.25", results[0].URL)
	assert.Equal(t, "Go 1.25 brings faster builds.", results[0].Snippet)

	// redirect links are unwrapped to the target URL
	assert.Equal(t, "https://example.com/notes", results[1].URL)
}

func TestSearch_LimitsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(WithSearchURL(server.URL))
	results, err := ddg.Search(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><div class='no-results'>nothing</div></body></html>")
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(WithSearchURL(server.URL))
	_, err := ddg.Search(context.Background(), "gibberish query", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoSearchResults))
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(WithSearchURL(server.URL))
	_, err := ddg.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSearchUnavailable))
}

func TestSearch_EmptyQuery(t *testing.T) {
	ddg := NewDuckDuckGo()
	_, err := ddg.Search(context.Background(), "  ", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestFetchContent(t *testing.T) {
	page := `<html><head><title>Go 1.25</title></head><body>
<article><h1>Go 1.25 is released</h1>
<p>` + longParagraph() + `</p>
<p>The garbage collector got faster and builds use less memory than before.</p>
</article></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo()
	content, err := ddg.FetchContent(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, content, "garbage collector")
	assert.LessOrEqual(t, len(content), maxContentLength+len("\n[truncated...]"))
}

func TestFetchContent_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo()
	_, err := ddg.FetchContent(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestSearchWithContent_KeepsSnippetOnFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := fmt.Sprintf(`<html><body>
<div class="result"><a class="result__a" href="%s/dead">Dead page</a>
<a class="result__snippet" href="#">Only the snippet survives.</a></div>
</body></html>`, "http://127.0.0.1:1")
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	ddg := NewDuckDuckGo(WithSearchURL(server.URL))
	results, err := ddg.SearchWithContent(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Content)
	assert.Equal(t, "Only the snippet survives.", results[0].Snippet)
}

// longParagraph keeps readability from discarding the article as too
// short.
func longParagraph() string {
	s := "Go 1.25 focuses on toolchain performance and runtime efficiency. "
	out := ""
	for i := 0; i < 40; i++ {
		out += s
	}
	return out
}
