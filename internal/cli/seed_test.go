package cli

import "testing"

func TestParseQuestionFile(t *testing.T) {
	data := []byte(`
timer: 45
questions:
  - text: What is 2 + 2?
    options: ["3", "4", "5", "6"]
    correct: 2
  - text: Largest planet?
    options: [Mars, Jupiter, Venus, Earth]
    correct: 2
    timer: 20
`)
	drafts, err := parseQuestionFile(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[0].Timer != 45 || drafts[1].Timer != 20 {
		t.Fatalf("unexpected timers %d %d", drafts[0].Timer, drafts[1].Timer)
	}
	if drafts[1].Options[1] != "Jupiter" || drafts[1].CorrectOptionIndex != 2 {
		t.Fatalf("unexpected draft %+v", drafts[1])
	}
}

func TestParseQuestionFileRejectsBadYAML(t *testing.T) {
	if _, err := parseQuestionFile([]byte("questions: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}
