// Package wiki fetches Wikipedia page summaries, giving the agent a source
// for encyclopedic questions the local knowledge base cannot answer.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"salesagent/internal/tool"
)

// ToolName is the registry name of the wiki tool.
const ToolName = "wiki_summary"

const toolDescription = `Fetch a Wikipedia summary for general knowledge questions.

Use for: historical facts, biographies, scientific concepts, definitions,
company information, and other encyclopedic information to augment the
local knowledge base.

Use as a secondary source for company-specific info and current events.`

// DefaultBaseURL is the Wikipedia REST API endpoint.
const DefaultBaseURL = "https://en.wikipedia.org/api/rest_v1"

const requestTimeout = 10 * time.Second

const userAgent = "salesagent/1.0"

type summaryArgs struct {
	Query string `json:"query" jsonschema:"topic to look up, e.g. Quantum Computing or Nikola Tesla"`
}

// summaryResponse is the slice of the REST payload the tool reads.
type summaryResponse struct {
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Client fetches page summaries from one Wikipedia-compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client. An empty baseURL selects English Wikipedia.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Summary fetches the summary text for a topic. A missing page is not an
// error: the caller gets guidance text the model can act on.
func (c *Client) Summary(ctx context.Context, query string) (string, error) {
	topic := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	if topic == "" {
		return "", fmt.Errorf("empty query")
	}

	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching summary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("wiki lookup missed", "query", query, "status", resp.StatusCode)
		return fmt.Sprintf("No Wikipedia page found for %q. Try rephrasing.", query), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var summary summaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	extract := summary.Extract
	if extract == "" {
		extract = "No summary available."
	}
	if page := summary.ContentURLs.Desktop.Page; page != "" {
		extract += "\n\nSource: " + page
	}
	return extract, nil
}

// Spec returns the registry descriptor.
func (c *Client) Spec() (tool.Spec, error) {
	schema, err := jsonschema.For[summaryArgs](nil)
	if err != nil {
		return tool.Spec{}, fmt.Errorf("building schema: %w", err)
	}
	return tool.Spec{
		Name:        ToolName,
		Description: toolDescription,
		InputSchema: schema,
		Handler:     c.handle,
	}, nil
}

func (c *Client) handle(ctx context.Context, args json.RawMessage) (string, error) {
	var a summaryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	return c.Summary(ctx, a.Query)
}
