package engine

import (
	"strings"
	"testing"

	"github.com/visionnaire/assistant-go/core"
)

func TestPrompt_RenderSlotOrder(t *testing.T) {
	p := NewPrompt()

	out, err := p.Render("CTX-BLOCK", "HS-BLOCK", "QUESTION-TEXT")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	ctxAt := strings.Index(out, "CTX-BLOCK")
	hsAt := strings.Index(out, "HS-BLOCK")
	qAt := strings.Index(out, "QUESTION-TEXT")
	if ctxAt < 0 || hsAt < 0 || qAt < 0 {
		t.Fatalf("A slot is missing from the rendered prompt:\n%s", out)
	}
	if !(ctxAt < hsAt && hsAt < qAt) {
		t.Errorf("Slots out of order: context=%d history=%d question=%d", ctxAt, hsAt, qAt)
	}
	if !strings.Contains(out, "<ctx>\nCTX-BLOCK\n</ctx>") {
		t.Error("Context block not delimited by <ctx></ctx>")
	}
	if !strings.Contains(out, "<hs>\nHS-BLOCK\n</hs>") {
		t.Error("History block not delimited by <hs></hs>")
	}
	if !strings.Contains(out, "QUESTION-TEXT\nAnswer:") {
		t.Error("Question must immediately precede the answer cue")
	}
}

func TestPrompt_RenderEmptySlots(t *testing.T) {
	p := NewPrompt()

	out, err := p.Render("", "", "only a question")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "<ctx>\n\n</ctx>") {
		t.Error("Empty context must render as an empty block, not be dropped")
	}
	if !strings.Contains(out, "only a question") {
		t.Error("Question missing from rendered prompt")
	}
}

func TestParsePrompt_Invalid(t *testing.T) {
	if _, err := ParsePrompt("{{.question"); err == nil {
		t.Fatal("Expected a parse error")
	}
}

func TestFormatHistory(t *testing.T) {
	history := []core.Message{
		core.NewHumanMessage("first question"),
		core.NewAIMessage("first answer"),
		core.NewHumanMessage("second question"),
	}

	got := FormatHistory(history)
	want := "Human: first question\nAI: first answer\nHuman: second question"
	if got != want {
		t.Errorf("FormatHistory mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFormatHistory_Empty(t *testing.T) {
	if got := FormatHistory(nil); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}
