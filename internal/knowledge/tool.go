package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"salesagent/internal/tool"
)

// ToolName is the registry name of the retrieval tool.
const ToolName = "search_local_docs"

const toolDescription = `Search the local knowledge base for relevant information.

Use this tool for questions about:
- Company policies, procedures, strategies
- Sales playbooks, competitive intelligence
- Product information and positioning
- Customer success stories and case studies
- Goals, targets, quotas (NOT in sales database)

This tool searches through all documents in the knowledge base using
semantic similarity over vector embeddings.`

// Default retrieval knobs. MaxScore is a cosine distance ceiling: chunks
// scoring above it are considered irrelevant and dropped.
const (
	DefaultTopK     = 6
	DefaultMaxScore = 0.4
)

// Searcher is the slice of Store the tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"search query for the knowledge base"`
}

// Tool is the search_local_docs implementation.
type Tool struct {
	searcher Searcher
	topK     int
	maxScore float64
	logger   *slog.Logger
}

// NewTool wires the retrieval tool. Zero topK or maxScore get defaults.
func NewTool(searcher Searcher, topK int, maxScore float64, logger *slog.Logger) *Tool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{searcher: searcher, topK: topK, maxScore: maxScore, logger: logger}
}

// Spec returns the registry descriptor.
func (t *Tool) Spec() (tool.Spec, error) {
	schema, err := jsonschema.For[searchArgs](nil)
	if err != nil {
		return tool.Spec{}, fmt.Errorf("building schema: %w", err)
	}
	return tool.Spec{
		Name:        ToolName,
		Description: toolDescription,
		InputSchema: schema,
		Handler:     t.handle,
	}, nil
}

func (t *Tool) handle(ctx context.Context, args json.RawMessage) (string, error) {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	return t.Answer(ctx, a.Query)
}

// Answer searches the store and renders the hits that pass the relevance
// ceiling, most relevant first. Lower score means more relevant; the
// rendering keeps that convention.
func (t *Tool) Answer(ctx context.Context, query string) (string, error) {
	results, err := t.searcher.Search(ctx, query, t.topK)
	if err != nil {
		return "", fmt.Errorf("searching knowledge base: %w", err)
	}

	kept := results[:0:len(results)]
	for _, r := range results {
		if r.Score <= t.maxScore {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score < kept[j].Score })

	t.logger.Debug("knowledge search", "query", query, "hits", len(results), "kept", len(kept))

	if len(kept) == 0 {
		return "No relevant documents found in knowledge base for this query.", nil
	}

	blocks := make([]string, 0, len(kept))
	for i, r := range kept {
		source := r.Document.Source
		if source == "" {
			source = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("[Document %d] (Score: %.2f) From %s:\n%s",
			i+1, r.Score, source, strings.TrimSpace(r.Document.Content)))
	}
	return strings.Join(blocks, "\n\n---\n\n"), nil
}
