package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	t.Parallel()

	want := []string{"ask", "chat", "ingest", "migrate", "serve", "version"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	assert.Contains(t, out, "salesagent")
	assert.Contains(t, out, AppVersion)
}

func TestAskRequiresArgs(t *testing.T) {
	t.Parallel()

	err := askCmd.Args(askCmd, nil)
	require.Error(t, err)

	err = askCmd.Args(askCmd, []string{"what", "was", "q1", "revenue"})
	assert.NoError(t, err)
}

func TestRenderMarkdownFallsBackToInput(t *testing.T) {
	t.Parallel()

	// Rendering never loses the content, styled or not.
	out := renderMarkdown("**Q1 revenue** was $271,680.50")
	assert.Contains(t, out, "271,680.50")
}
