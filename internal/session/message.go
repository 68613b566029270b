// Package session provides in-memory conversation state.
//
// A Session owns an ordered log of messages for one conversation, identified
// by an opaque key. Sessions live only in process memory: a restart or an
// explicit reset discards them. There is no cross-session sharing.
package session

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	// ID links the later tool-result message back to this request.
	ID string

	// Name is the registered tool name.
	Name string

	// Arguments is the raw JSON argument payload as supplied by the model.
	Arguments string
}

// Message is one conversational turn.
//
// Invariant: a RoleTool message's ToolCallID always matches a ToolCalls
// entry of a preceding RoleAssistant message in the same session. The
// orchestrator preserves this linkage by appending tool results in the
// order the model requested them.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that request tool invocations.
	// Content may be empty in that case.
	ToolCalls []ToolCall

	// ToolCallID and ToolName are set on RoleTool messages.
	ToolCallID string
	ToolName   string
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a plain assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantToolCalls builds an assistant turn that requests tool invocations.
func AssistantToolCalls(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult builds a tool-result turn answering the given call.
func ToolResult(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName}
}
