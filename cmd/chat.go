package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"salesagent/internal/agent"
	"salesagent/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the sales agent",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, cleanup, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, agentStyle.Render("Sales Agent")+" "+faintStyle.Render(AppVersion))
	fmt.Fprintln(out, faintStyle.Render("Ask about sales data, goals, or trends. Commands: exit, reset, tools, refresh."))
	fmt.Fprintln(out)

	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, promptStyle.Render("you> "))

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Fprintln(out, "\nGoodbye.")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "q":
			fmt.Fprintln(out, "Goodbye.")
			return nil
		case "reset":
			a.Agent.Reset(sessionID)
			fmt.Fprintln(out, faintStyle.Render("Conversation cleared."))
			continue
		case "tools":
			printTools(out, a)
			continue
		case "refresh":
			a.Schema.Invalidate()
			fmt.Fprintln(out, faintStyle.Render("Schema snapshot invalidated; it will be refetched on the next database query."))
			continue
		}

		if err := chatTurn(ctx, out, a, sessionID, input); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// chatTurn runs one question through the agent. Streamed deltas are
// printed raw as they arrive; the final answer is re-rendered as
// markdown once the turn completes.
func chatTurn(ctx context.Context, out io.Writer, a *app.App, sessionID, input string) error {
	fmt.Fprint(out, agentStyle.Render("agent> "))

	streamed := false
	turn, err := a.Agent.Run(ctx, sessionID, input, func(text string) {
		streamed = true
		fmt.Fprint(out, text)
	})
	if err != nil {
		fmt.Fprintln(out)
		return err
	}
	if streamed {
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, renderMarkdown(turn.Answer))
	if len(turn.ToolResults) > 0 {
		var names []string
		for _, res := range turn.ToolResults {
			names = append(names, res.ToolName)
		}
		fmt.Fprintln(out, faintStyle.Render(fmt.Sprintf("(%d rounds, tools: %s)", turn.Rounds, strings.Join(names, ", "))))
	}
	if turn.State == agent.StateAborted {
		fmt.Fprintln(out, faintStyle.Render("(turn aborted)"))
	}
	fmt.Fprintln(out)
	return nil
}

func printTools(out io.Writer, a *app.App) {
	fmt.Fprintln(out, "Registered tools:")
	for _, spec := range a.Registry.Specs() {
		desc := spec.Description
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
		fmt.Fprintf(out, "  %s  %s\n", promptStyle.Render(spec.Name), faintStyle.Render(desc))
	}
}
