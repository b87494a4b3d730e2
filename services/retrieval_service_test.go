package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
)

func TestBuildPromptMessagesGroupsByCompany(t *testing.T) {
	results := []database.KNNResult{
		{ChunkID: uuid.New(), Company: "TATA MOTORS", DocType: "annual_report", Period: "2023", Field: "revenue", Content: "Revenue was 100 crore.", PageNo: 12},
		{ChunkID: uuid.New(), Company: "INFOSYS", DocType: "quarterly_report", Period: "2024", Field: "eps", Content: "EPS of 18.2.", PageNo: 3},
		{ChunkID: uuid.New(), Company: "TATA MOTORS", DocType: "financials", Period: "2022", Field: "", Content: "Total assets grew.", PageNo: 40},
	}

	messages := buildPromptMessages(nil, results, "How did revenue develop?")
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("first message role = %s, want system", messages[0].Role)
	}

	user := messages[1].Content
	if !strings.Contains(user, "[Document: annual_report, Period: 2023, Field: revenue]") {
		t.Error("bracketed chunk header missing")
	}

	// Both TATA MOTORS chunks appear under one company header
	if strings.Count(user, "Company: TATA MOTORS") != 1 {
		t.Errorf("TATA MOTORS header should appear once:\n%s", user)
	}
	infosysIdx := strings.Index(user, "Company: INFOSYS")
	tataIdx := strings.Index(user, "Company: TATA MOTORS")
	if infosysIdx == -1 || tataIdx == -1 || infosysIdx > tataIdx {
		t.Error("companies should be grouped in sorted order")
	}

	if !strings.Contains(user, "Question: How did revenue develop?") {
		t.Error("question missing from user message")
	}
}

func TestBuildPromptMessagesPreservesHistoryRoles(t *testing.T) {
	history := []model.Message{
		{Role: model.MessageRoleUser, Content: "What was revenue?"},
		{Role: model.MessageRoleAI, Content: "Revenue was 100 crore."},
	}

	messages := buildPromptMessages(history, nil, "And net income?")
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want system + 2 history + user", len(messages))
	}
	if messages[1].Role != "user" || messages[1].Content != "What was revenue?" {
		t.Errorf("history turn 1 = %+v", messages[1])
	}
	if messages[2].Role != "assistant" {
		t.Errorf("ai history role = %s, want assistant", messages[2].Role)
	}
}
