package integrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/your-org/visora/internal/config"
)

// ddgTopic is either a result or a named group of results.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading        string     `json:"Heading"`
	AbstractText   string     `json:"AbstractText"`
	AbstractSource string     `json:"AbstractSource"`
	Answer         string     `json:"Answer"`
	Definition     string     `json:"Definition"`
	RelatedTopics  []ddgTopic `json:"RelatedTopics"`
}

// SearchResult is an instant answer plus a few related snippets.
type SearchResult struct {
	Query    string
	Heading  string
	Abstract string
	Source   string
	Snippets []string
}

// Empty reports whether nothing useful was found.
func (r *SearchResult) Empty() bool {
	return r.Abstract == "" && len(r.Snippets) == 0
}

// Text formats the result for listening.
func (r *SearchResult) Text() string {
	if r.Empty() {
		return fmt.Sprintf("I couldn't find anything about '%s'.", r.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for '%s':\n", r.Query)
	if r.Abstract != "" {
		b.WriteString("\n")
		b.WriteString(r.Abstract)
		if r.Source != "" {
			fmt.Fprintf(&b, " (source: %s)", r.Source)
		}
		b.WriteString("\n")
	}
	for i, s := range r.Snippets {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Search queries the DuckDuckGo Instant Answer API.
type Search struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

func NewSearch(cfg config.SearchConfig) *Search {
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 5
	}
	return &Search{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: limit,
		client:     newHTTPClient(cfg.Timeout),
	}
}

func (s *Search) Query(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	var resp ddgResponse
	if err := getJSON(ctx, s.client, "search", "instant_answer", s.baseURL+"/?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	res := &SearchResult{
		Query:    query,
		Heading:  resp.Heading,
		Abstract: firstNonEmpty(resp.AbstractText, resp.Answer, resp.Definition),
		Source:   resp.AbstractSource,
	}
	res.Snippets = collectSnippets(resp.RelatedTopics, s.maxResults)

	slog.Info("web search completed", "query", query, "snippets", len(res.Snippets))
	return res, nil
}

// collectSnippets flattens grouped topics, keeping at most limit texts.
func collectSnippets(topics []ddgTopic, limit int) []string {
	var out []string
	var walk func([]ddgTopic)
	walk = func(ts []ddgTopic) {
		for _, t := range ts {
			if len(out) >= limit {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if text := strings.TrimSpace(t.Text); text != "" {
				out = append(out, text)
			}
		}
	}
	walk(topics)
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
