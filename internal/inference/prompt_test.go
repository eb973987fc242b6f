package inference

import (
	"strings"
	"testing"

	"github.com/samcharles93/ember/internal/tokenizer"
)

func TestRenderPromptFormat(t *testing.T) {
	t.Parallel()
	msgs := []tokenizer.Message{
		{Role: tokenizer.RoleUser, Content: "hi"},
		{Role: tokenizer.RoleAssistant, Content: "hello"},
		{Role: tokenizer.RoleUser, Content: "how are you?"},
	}
	got := RenderPrompt("SYSTEM\n", Capabilities{}, msgs)

	want := "SYSTEM\n" +
		"- Web search: disabled.\n" +
		"- Calculator: disabled.\n" +
		"- Equation solver: disabled.\n" +
		"- Text-to-image: disabled.\n" +
		"- Image edition: disabled.\n" +
		"- Text-to-speech: disabled.\n" +
		"<|Human|>: hi<eoh>\n" +
		"<|MOSS|>: hello<eom>" +
		"<|Human|>: how are you?<eoh>\n"
	if got != want {
		t.Fatalf("rendered prompt:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderPromptEnabledCapability(t *testing.T) {
	t.Parallel()
	got := RenderPrompt("", Capabilities{Calculator: true}, nil)
	if !strings.Contains(got, "- Calculator: enabled.\n") {
		t.Fatalf("calculator switch not enabled:\n%s", got)
	}
	if !strings.Contains(got, "- Web search: disabled.\n") {
		t.Fatalf("other switches should stay disabled:\n%s", got)
	}
}

func TestDefaultPreambleMentionsCapabilities(t *testing.T) {
	t.Parallel()
	if !strings.HasSuffix(DefaultPreamble, "Capabilities and tools that MOSS can possess.\n") {
		t.Fatal("preamble must end right before the capability switches")
	}
}
