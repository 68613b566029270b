package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore_GetCreatesOnFirstUse(t *testing.T) {
	st := NewStore()

	s := st.Get("alice")
	if s == nil {
		t.Fatal("Get returned nil")
	}
	if s.Key() != "alice" {
		t.Errorf("Key() = %q, want %q", s.Key(), "alice")
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}

	// Same key returns the same session.
	if st.Get("alice") != s {
		t.Error("Get with same key returned a different session")
	}
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	st := NewStore()

	a := st.Get("a")
	b := st.Get("b")

	a.Append(UserMessage("hello from a"))

	if a.Len() != 1 {
		t.Errorf("a.Len() = %d, want 1", a.Len())
	}
	if b.Len() != 0 {
		t.Errorf("b.Len() = %d, want 0 (no cross-session sharing)", b.Len())
	}
}

func TestStore_Reset(t *testing.T) {
	st := NewStore()

	s := st.Get("x")
	s.Append(UserMessage("hi"))

	st.Reset("x")

	fresh := st.Get("x")
	if fresh == s {
		t.Error("Reset should discard the old session")
	}
	if fresh.Len() != 0 {
		t.Errorf("fresh session has %d messages, want 0", fresh.Len())
	}
}

func TestSession_MessagesReturnsCopy(t *testing.T) {
	st := NewStore()
	s := st.Get("x")
	s.Append(UserMessage("one"))

	msgs := s.Messages()
	msgs[0].Content = "mutated"

	if got := s.Messages()[0].Content; got != "one" {
		t.Errorf("session log mutated through returned slice: %q", got)
	}
}

func TestSession_AppendOrderPreserved(t *testing.T) {
	st := NewStore()
	s := st.Get("x")

	s.Append(
		UserMessage("q"),
		AssistantToolCalls("", []ToolCall{{ID: "call_1", Name: "t"}}),
		ToolResult("call_1", "t", "out"),
		AssistantMessage("final"),
	)

	msgs := s.Messages()
	wantRoles := []Role{RoleUser, RoleAssistant, RoleTool, RoleAssistant}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantRoles))
	}
	for i, r := range wantRoles {
		if msgs[i].Role != r {
			t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, r)
		}
	}
	if msgs[2].ToolCallID != "call_1" {
		t.Errorf("tool result not linked: %q", msgs[2].ToolCallID)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("session-%d", i%5)
			s := st.Get(key)
			s.Append(UserMessage("msg"))
			_ = s.Messages()
		}(i)
	}
	wg.Wait()

	if st.Len() != 5 {
		t.Errorf("Len() = %d, want 5", st.Len())
	}
	total := 0
	for i := 0; i < 5; i++ {
		total += st.Get(fmt.Sprintf("session-%d", i)).Len()
	}
	if total != 20 {
		t.Errorf("total messages = %d, want 20", total)
	}
}
