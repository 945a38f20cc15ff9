package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/ContractSum/internal/api"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(analyses []*api.Analysis) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Contract Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(timeLayout))

	if len(analyses) > 1 {
		f.writeTableOfContents(&b, analyses)
	}

	for _, a := range analyses {
		if a == nil {
			continue
		}
		f.writeAnalysis(&b, a)
	}

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeTableOfContents(b *strings.Builder, analyses []*api.Analysis) {
	b.WriteString("## Contents\n\n")
	b.WriteString("| File | Status | ID |\n")
	b.WriteString("|------|--------|----|\n")
	for _, a := range analyses {
		if a == nil {
			continue
		}
		fmt.Fprintf(b, "| %s | %s | `%s` |\n", escapeTable(a.FileName), a.Status.Label(), a.ID)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeAnalysis(b *strings.Builder, a *api.Analysis) {
	title := a.FileName
	if title == "" {
		title = a.ID
	}
	fmt.Fprintf(b, "## %s\n\n", title)

	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	fmt.Fprintf(b, "| ID | `%s` |\n", a.ID)
	fmt.Fprintf(b, "| Status | %s |\n", a.Status.Label())
	if created := formatTime(a.CreatedAt); created != "" {
		fmt.Fprintf(b, "| Created | %s |\n", created)
	}
	if updated := formatTime(a.UpdatedAt); updated != "" {
		fmt.Fprintf(b, "| Updated | %s |\n", updated)
	}
	b.WriteString("\n")

	if msg := notice(a); msg != "" {
		fmt.Fprintf(b, "> %s\n\n", msg)
		return
	}

	b.WriteString("### Summary\n\n")
	if summary := summaryOf(a); summary != "" {
		b.WriteString(summary + "\n\n")
	} else {
		b.WriteString("_No summary available._\n\n")
	}

	b.WriteString("### Key Clauses\n\n")
	clauses := clausesOf(a)
	if len(clauses) == 0 {
		b.WriteString("_No key clauses identified._\n\n")
		return
	}
	for i, clause := range clauses {
		fmt.Fprintf(b, "%d. %s\n", i+1, clause)
	}
	b.WriteString("\n")
}

func escapeTable(s string) string {
	return strings.ReplaceAll(singleLine(s), "|", "\\|")
}
