package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendThenHistory(t *testing.T) {
	s := NewStore()
	s.Append("conv1", RoleUser, "hello")

	got := s.History("conv1")
	want := []Message{{Role: RoleUser, Content: "hello"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore()
	s.Append("conv1", RoleUser, "question")
	s.Append("conv1", RoleAssistant, "answer")

	got := s.History("conv1")
	want := []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestHistoryUnknownIDIsEmptyAndSideEffectFree(t *testing.T) {
	s := NewStore()
	if got := s.History("never-seen"); len(got) != 0 {
		t.Errorf("expected empty history, got %v", got)
	}
	// Reading must not create the conversation.
	s.mu.RLock()
	_, exists := s.conversations["never-seen"]
	s.mu.RUnlock()
	if exists {
		t.Error("History created a conversation entry")
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	s := NewStore()
	s.Append("a", RoleUser, "for a")
	s.Append("b", RoleUser, "for b")

	if got := s.History("a"); len(got) != 1 || got[0].Content != "for a" {
		t.Errorf("conversation a polluted: %v", got)
	}
	if s.Len("b") != 1 {
		t.Errorf("conversation b has %d messages", s.Len("b"))
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("conv1", RoleUser, "original")

	h := s.History("conv1")
	h[0].Content = "mutated"

	if got := s.History("conv1")[0].Content; got != "original" {
		t.Errorf("stored message mutated through returned slice: %q", got)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append("shared", RoleUser, fmt.Sprintf("msg %d", n))
		}(i)
	}
	wg.Wait()
	if got := s.Len("shared"); got != 50 {
		t.Errorf("expected 50 messages, got %d", got)
	}
}
