// Package websearch implements the web_search and web_reader tools on top
// of the Tavily API, with r.jina.ai as a reader fallback.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/tools"
)

const (
	DefaultTavilyURL = "https://api.tavily.com"
	DefaultJinaURL   = "https://r.jina.ai"

	WebSearch = "web_search"
	WebReader = "web_reader"

	defaultMaxResults = 5
)

// Client calls Tavily and Jina. Results are JSON strings meant for the
// model; failures are reported inside them rather than returned.
type Client struct {
	apiKey    string
	tavilyURL string
	jinaURL   string
	http      *http.Client
	retry     errors.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithTavilyURL overrides the Tavily base URL.
func WithTavilyURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.tavilyURL = strings.TrimRight(url, "/")
		}
	}
}

// WithJinaURL overrides the reader fallback base URL.
func WithJinaURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.jinaURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry sets the backoff for transient HTTP failures.
func WithRetry(cfg errors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client. Without an API key, web_search reports an error
// and web_reader goes straight to Jina.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		tavilyURL: DefaultTavilyURL,
		jinaURL:   DefaultJinaURL,
		http:      http.DefaultClient,
		retry:     errors.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools returns the schemas of web_search and web_reader.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(WebSearch,
			mcp.WithDescription("Search the web for information using a query string. "+
				"Returns relevant results with titles, URLs, and content snippets. "+
				"Use this when you need up-to-date information from the internet."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
			mcp.WithNumber("max_results", mcp.Description("Maximum number of results to return (default: 5)")),
		),
		mcp.NewTool(WebReader,
			mcp.WithDescription("Read and extract the main content from one or more web pages. "+
				"Provide URLs to fetch their full text content."),
			mcp.WithArray("urls", mcp.Required(), mcp.WithStringItems(), mcp.Description("List of URLs to read")),
		),
	}
}

// Register adds both tools to m.
func (c *Client) Register(m *tools.Mux) {
	for _, t := range Tools() {
		m.Register(t, c.Handle)
	}
}

// Handle serves web_search and web_reader. It matches tools.Handler.
func (c *Client) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case WebSearch:
		query, _ := args["query"].(string)
		limit := defaultMaxResults
		if n, ok := args["max_results"].(float64); ok && n > 0 {
			limit = int(n)
		}
		return c.Search(ctx, query, limit), nil
	case WebReader:
		return c.Read(ctx, urlsArg(args)), nil
	default:
		return fmt.Sprintf(`Error: unknown tool "%s"`, name), nil
	}
}

func urlsArg(args map[string]any) []string {
	var urls []string
	switch v := args["urls"].(type) {
	case []any:
		for _, u := range v {
			if s, ok := u.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
	case string:
		urls = append(urls, v)
	}
	if u, ok := args["url"].(string); ok && u != "" {
		urls = append(urls, u)
	}
	return urls
}

type hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResult struct {
	OK      bool    `json:"ok"`
	Answer  *string `json:"answer"`
	Results []hit   `json:"results"`
}

type page struct {
	URL     string `json:"url"`
	OK      bool   `json:"ok"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

type readResult struct {
	OK    bool   `json:"ok"`
	Pages []page `json:"pages"`
}

func failure(msg string) string {
	return encode(map[string]any{"ok": false, "error": msg})
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return failure(err.Error())
	}
	return string(b)
}

// Search runs a Tavily search.
func (c *Client) Search(ctx context.Context, query string, maxResults int) string {
	if query == "" {
		return failure("query is required")
	}
	if c.apiKey == "" {
		return failure("Tavily API key is not configured")
	}

	logger.Debug("web_search: %q (max %d)", query, maxResults)
	body, err := c.post(ctx, "/search", map[string]any{
		"api_key":        c.apiKey,
		"query":          query,
		"max_results":    maxResults,
		"include_answer": true,
	})
	if err != nil {
		logger.Warn("web_search failed: %v", err)
		return failure(fmt.Sprintf("Tavily search failed: %v", err))
	}

	res := searchResult{OK: true, Results: []hit{}}
	if a := gjson.GetBytes(body, "answer"); a.Type == gjson.String {
		res.Answer = &a.Str
	}
	for _, r := range gjson.GetBytes(body, "results").Array() {
		res.Results = append(res.Results, hit{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Content: r.Get("content").String(),
		})
	}
	return encode(res)
}

// Read extracts page content through Tavily, falling back to Jina when
// Tavily is unconfigured, fails or returns nothing.
func (c *Client) Read(ctx context.Context, urls []string) string {
	if len(urls) == 0 {
		return failure("urls is required")
	}
	if c.apiKey != "" {
		out, err := c.extract(ctx, urls)
		if err == nil {
			return out
		}
		logger.Warn("Tavily extract failed, falling back to Jina: %v", err)
	}
	return c.jina(ctx, urls)
}

func (c *Client) extract(ctx context.Context, urls []string) (string, error) {
	body, err := c.post(ctx, "/extract", map[string]any{
		"api_key": c.apiKey,
		"urls":    urls,
	})
	if err != nil {
		return "", err
	}
	results := gjson.GetBytes(body, "results").Array()
	if len(results) == 0 {
		return "", errors.New("tavily returned empty results")
	}
	res := readResult{OK: true}
	for _, r := range results {
		res.Pages = append(res.Pages, page{
			URL:     r.Get("url").String(),
			OK:      true,
			Content: r.Get("raw_content").String(),
		})
	}
	return encode(res), nil
}

func (c *Client) jina(ctx context.Context, urls []string) string {
	res := readResult{}
	for _, u := range urls {
		content, err := c.get(ctx, c.jinaURL+"/"+u)
		if err != nil {
			res.Pages = append(res.Pages, page{URL: u, Error: err.Error()})
			continue
		}
		res.Pages = append(res.Pages, page{URL: u, OK: true, Content: content})
		res.OK = true
	}
	return encode(res)
}

// post sends a JSON body to a Tavily endpoint, retrying 5xx, 429 and
// network failures.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return errors.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tavilyURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewPermanentError("tavily "+path, err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, "tavily "+path)
	})
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	body, err := errors.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.NewPermanentError("jina", err)
		}
		req.Header.Set("Accept", "text/plain")
		return c.do(req, "jina")
	})
	return string(body), err
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, errors.NewTransientError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransientError(op, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errors.NewTransientError(op, statusErr)
	}
	return nil, errors.NewPermanentError(op, statusErr)
}
