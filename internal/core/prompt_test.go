package core

import (
	"strings"
	"testing"
)

func promptFixture() (ContextBundle, []ConversationTurn) {
	bundle := ContextBundle{
		Intent:       IntentGeneral,
		SummaryLines: []string{"Total spend: 57.50"},
		RecordLines:  []string{"- 2024-03-02 Groceries 20.50"},
	}
	history := []ConversationTurn{
		{Role: RoleUser, Content: "oldest question"},
		{Role: RoleAssistant, Content: "oldest answer"},
		{Role: RoleUser, Content: "recent question"},
		{Role: RoleAssistant, Content: "recent answer"},
	}
	return bundle, history
}

func TestAssembleOrdering(t *testing.T) {
	bundle, history := promptFixture()
	prompt := AssemblePrompt(SystemInstructions, bundle, history, "new message", 100000)

	positions := []int{
		strings.Index(prompt, SystemInstructions),
		strings.Index(prompt, "EXPENSE CONTEXT"),
		strings.Index(prompt, "oldest question"),
		strings.Index(prompt, "recent answer"),
		strings.Index(prompt, "Question: new message"),
	}
	for i, p := range positions {
		if p < 0 {
			t.Fatalf("section %d missing from prompt:\n%s", i, prompt)
		}
		if i > 0 && p < positions[i-1] {
			t.Errorf("section %d appears before section %d", i, i-1)
		}
	}
}

func TestAssembleTrimsHistoryOldestFirst(t *testing.T) {
	bundle, history := promptFixture()

	full := AssemblePrompt(SystemInstructions, bundle, history, "new message", 100000)
	// Budget that forces dropping some history but can hold the rest.
	budget := len(full) - 10

	prompt := AssemblePrompt(SystemInstructions, bundle, history, "new message", budget)
	if len(prompt) > budget {
		t.Fatalf("prompt exceeds budget: %d > %d", len(prompt), budget)
	}
	if strings.Contains(prompt, "oldest question") {
		t.Error("expected the oldest turn to be trimmed first")
	}
	if !strings.Contains(prompt, "recent answer") {
		t.Error("most recent turn should survive trimming")
	}
}

func TestAssembleNeverTrimsLoadBearingParts(t *testing.T) {
	bundle, history := promptFixture()

	// Budget too small even for the fixed parts: history goes entirely, the
	// rest stays.
	prompt := AssemblePrompt(SystemInstructions, bundle, history, "new message", 10)

	if strings.Contains(prompt, "question") && strings.Contains(prompt, "oldest") {
		t.Error("history should be fully trimmed at this budget")
	}
	if !strings.Contains(prompt, SystemInstructions) {
		t.Error("system instructions must never be trimmed")
	}
	if !strings.Contains(prompt, "EXPENSE CONTEXT") {
		t.Error("context bundle must never be trimmed")
	}
	if !strings.Contains(prompt, "Question: new message") {
		t.Error("new user message must never be trimmed")
	}
}

func TestAssembleBoundWithOversizedHistory(t *testing.T) {
	bundle, _ := promptFixture()
	history := make([]ConversationTurn, 200)
	for i := range history {
		history[i] = ConversationTurn{Role: RoleUser, Content: strings.Repeat("x", 100)}
	}
	history[199].Content = "the very last turn"

	base := AssemblePrompt(SystemInstructions, bundle, nil, "new message", 100000)
	budget := len(base) + 200

	prompt := AssemblePrompt(SystemInstructions, bundle, history, "new message", budget)
	if len(prompt) > budget {
		t.Fatalf("prompt exceeds configured maximum: %d > %d", len(prompt), budget)
	}
	if !strings.Contains(prompt, "the very last turn") {
		t.Error("most recent turn must be present in the output")
	}
	if !strings.Contains(prompt, "Question: new message") {
		t.Error("new message must be present in the output")
	}
}
