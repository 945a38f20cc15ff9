package components

import (
	"strings"
	"testing"
	"time"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/session"
)

func sampleHistory() []session.RecentAnalysis {
	at := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)
	return []session.RecentAnalysis{
		{ID: "a3", FileName: "lease.pdf", Status: api.StatusInProgress, UpdatedAt: at},
		{ID: "a2", FileName: "nda.docx", Status: api.StatusCompleted, UpdatedAt: at},
		{ID: "a1", FileName: "", Status: api.StatusFailed},
	}
}

func TestHistoryList(t *testing.T) {
	list := NewHistoryList(sampleHistory(), "2006-01-02", 60, 10)

	if list.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", list.Len())
	}

	tests := []struct {
		index  int
		title  string
		status string
	}{
		{0, "lease.pdf", "warning"},
		{1, "nda.docx", "success"},
		{2, "a1", "error"},
	}
	for _, tt := range tests {
		item := list.Items[tt.index]
		if item.Title != tt.title {
			t.Errorf("item %d: expected title %q, got %q", tt.index, tt.title, item.Title)
		}
		if item.Status != tt.status {
			t.Errorf("item %d: expected status %q, got %q", tt.index, tt.status, item.Status)
		}
	}

	if !strings.Contains(list.Items[0].Description, "In progress") {
		t.Errorf("expected status label in description, got %q", list.Items[0].Description)
	}
	if list.Items[2].Description != "Failed" {
		t.Errorf("expected no timestamp for zero time, got %q", list.Items[2].Description)
	}
}

func TestListNavigation(t *testing.T) {
	list := NewHistoryList(sampleHistory(), time.RFC3339, 60, 10)

	list.MoveUp()
	if got := list.GetSelectedItem().ID; got != "a3" {
		t.Errorf("expected selection to stay on first item, got %s", got)
	}

	list.MoveDown()
	list.MoveDown()
	list.MoveDown()
	if got := list.GetSelectedItem().ID; got != "a1" {
		t.Errorf("expected selection to stop on last item, got %s", got)
	}

	list.SetSearch("NDA")
	if list.Len() != 1 {
		t.Fatalf("expected 1 match, got %d", list.Len())
	}
	if got := list.GetSelectedItem().ID; got != "a2" {
		t.Errorf("expected a2, got %s", got)
	}

	list.SetSearch("nothing matches")
	if list.GetSelectedItem() != nil {
		t.Error("expected no selection for an empty result")
	}
}

func TestListRender(t *testing.T) {
	list := NewHistoryList(sampleHistory(), time.RFC3339, 60, 5)
	list.SetFocused(true)

	out := list.Render()
	if !strings.Contains(out, "Recent analyses") {
		t.Error("expected title in output")
	}
	if !strings.Contains(out, "lease.pdf") {
		t.Error("expected first item in output")
	}
	if !strings.Contains(out, "(1-1 of 3)") {
		t.Errorf("expected scroll indicator, got:\n%s", out)
	}

	empty := NewHistoryList(nil, time.RFC3339, 60, 10).Render()
	if !strings.Contains(empty, "Nothing here yet.") {
		t.Error("expected empty notice")
	}
}
