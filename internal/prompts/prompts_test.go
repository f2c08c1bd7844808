package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if len(r.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(r.Messages))
	}
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", r.Messages[0].Content)
	}
	return tc.Text
}

func TestFeedingRoundPrompt_Defaults(t *testing.T) {
	p := NewFeedingRoundPrompt()
	if p.Definition().Name != "feeding-round" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := promptText(t, r)
	if !strings.Contains(text, "all spiders (today)") {
		t.Errorf("unexpected text:\n%s", text)
	}
	if strings.Contains(text, "with date=") {
		t.Error("default round must not pass a date")
	}
}

func TestFeedingRoundPrompt_Arguments(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"date": "08-01-2024", "species": "Brachypelma hamorii"}

	r, err := NewFeedingRoundPrompt().Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := promptText(t, r)
	for _, want := range []string{"species='Brachypelma hamorii'", "`spider_feed` with date='08-01-2024'"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestStatusPrompt(t *testing.T) {
	p := NewStatusPrompt()
	if p.Definition().Name != "collection-status" {
		t.Errorf("name = %q", p.Definition().Name)
	}
	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(promptText(t, r), "spider_overview") {
		t.Error("status prompt must call spider_overview")
	}
}
