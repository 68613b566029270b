package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesagent/internal/log"
)

// fakeSearcher returns canned results and records the requested k.
type fakeSearcher struct {
	results []Result
	err     error
	gotK    int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, k int) ([]Result, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestToolAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []Result{
		{Document: Document{Source: "Q1_2025_Sales_Priorities.md", Content: "Q1 target: $300,000"}, Score: 0.22},
		{Document: Document{Source: "old_notes.md", Content: "unrelated"}, Score: 0.55},
		{Document: Document{Source: "discount_policy.md", Content: "Gold tier gets 10-20% off"}, Score: 0.31},
	}}
	tl := NewTool(searcher, 0, 0, log.NewNop())

	out, err := tl.Answer(context.Background(), "Q1 sales target")
	require.NoError(t, err)

	assert.Equal(t, DefaultTopK, searcher.gotK)

	// above-ceiling chunk is dropped
	assert.NotContains(t, out, "old_notes.md")

	// ascending score: best match first
	assert.Contains(t, out, "[Document 1] (Score: 0.22) From Q1_2025_Sales_Priorities.md:")
	assert.Contains(t, out, "[Document 2] (Score: 0.31) From discount_policy.md:")
	assert.Less(t,
		strings.Index(out, "Q1_2025_Sales_Priorities.md"),
		strings.Index(out, "discount_policy.md"))

	assert.Contains(t, out, "Q1 target: $300,000")
	assert.Contains(t, out, "\n\n---\n\n")
}

func TestToolAnswerOrdersByScore(t *testing.T) {
	// store may return near-ties in any order; rendering must sort ascending
	searcher := &fakeSearcher{results: []Result{
		{Document: Document{Source: "b.md", Content: "b"}, Score: 0.30},
		{Document: Document{Source: "a.md", Content: "a"}, Score: 0.10},
	}}
	tl := NewTool(searcher, 6, 0.4, log.NewNop())

	out, err := tl.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "[Document 1] (Score: 0.10) From a.md:")
	assert.Contains(t, out, "[Document 2] (Score: 0.30) From b.md:")
}

func TestToolAnswerNoRelevantDocs(t *testing.T) {
	searcher := &fakeSearcher{results: []Result{
		{Document: Document{Source: "x.md", Content: "far away"}, Score: 0.9},
	}}
	tl := NewTool(searcher, 6, 0.4, log.NewNop())

	out, err := tl.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "No relevant documents found in knowledge base for this query.", out)
}

func TestToolAnswerEmptyIndex(t *testing.T) {
	tl := NewTool(&fakeSearcher{}, 6, 0.4, log.NewNop())
	out, err := tl.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant documents found")
}

func TestToolAnswerSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("connection refused")}
	tl := NewTool(searcher, 6, 0.4, log.NewNop())

	_, err := tl.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching knowledge base")
}

func TestToolAnswerUnknownSource(t *testing.T) {
	searcher := &fakeSearcher{results: []Result{
		{Document: Document{Content: "orphan chunk"}, Score: 0.1},
	}}
	tl := NewTool(searcher, 6, 0.4, log.NewNop())

	out, err := tl.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "From Unknown:")
}

func TestToolSpecAndHandle(t *testing.T) {
	searcher := &fakeSearcher{results: []Result{
		{Document: Document{Source: "a.md", Content: "hit"}, Score: 0.1},
	}}
	tl := NewTool(searcher, 6, 0.4, log.NewNop())

	spec, err := tl.Spec()
	require.NoError(t, err)
	assert.Equal(t, ToolName, spec.Name)
	require.NotNil(t, spec.InputSchema)

	out, err := spec.Handler(context.Background(), json.RawMessage(`{"query":"policies"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "hit")

	_, err = spec.Handler(context.Background(), json.RawMessage(`{broken`))
	require.Error(t, err)
}
