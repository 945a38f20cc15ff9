package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/ContractSum/internal/api"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter
func NewTerminal(color, emoji bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = emoji
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(analyses []*api.Analysis) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b)

	if len(analyses) == 0 {
		b.WriteString("No analyses to show.\n")
		return []byte(b.String()), nil
	}

	for i, a := range analyses {
		if a == nil {
			continue
		}
		if i > 0 {
			b.WriteString(strings.Repeat("─", 50) + "\n\n")
		}
		f.writeAnalysis(&b, a)
	}

	return []byte(b.String()), nil
}

// writeHeader writes the report title in a box
func (f *terminalFormatter) writeHeader(b *strings.Builder) {
	header := "Contract Analysis"
	headerLen := len(header)

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}

func (f *terminalFormatter) writeAnalysis(b *strings.Builder, a *api.Analysis) {
	name := a.FileName
	if name == "" {
		name = a.ID
	}
	fmt.Fprintf(b, "%s %s\n", getStatusEmoji(a.Status, f.opts), name)

	f.writeDetails(b, a)

	if msg := notice(a); msg != "" {
		b.WriteString(msg + "\n\n")
		if a.Status == api.StatusFailed && a.Result != nil && a.Result.Error != "" {
			fmt.Fprintf(b, "Reason: %s\n\n", a.Result.Error)
		}
		return
	}

	f.writeSummary(b, summaryOf(a))
	f.writeClauses(b, clausesOf(a))
}

// writeDetails writes job metadata as a tree
func (f *terminalFormatter) writeDetails(b *strings.Builder, a *api.Analysis) {
	items := []termfmt.TreeItem{
		{Label: "ID", Value: a.ID},
		{Label: "Status", Value: a.Status.Label()},
	}
	if created := formatTime(a.CreatedAt); created != "" {
		items = append(items, termfmt.TreeItem{Label: "Created", Value: created})
	}
	if updated := formatTime(a.UpdatedAt); updated != "" {
		items = append(items, termfmt.TreeItem{Label: "Updated", Value: updated})
	}
	items[len(items)-1].Last = true

	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}

func (f *terminalFormatter) writeSummary(b *strings.Builder, summary string) {
	symbol := termfmt.GetEmoji("summary", f.opts)
	if symbol == "" {
		symbol = "📝"
	}
	fmt.Fprintf(b, "%s Summary\n", symbol)
	if summary == "" {
		b.WriteString("No summary available.\n\n")
		return
	}
	b.WriteString(summary + "\n\n")
}

// writeClauses writes key clauses as a tree
func (f *terminalFormatter) writeClauses(b *strings.Builder, clauses []string) {
	symbol := termfmt.GetEmoji("target", f.opts)
	if symbol == "" {
		symbol = "🎯"
	}
	fmt.Fprintf(b, "%s Key Clauses\n", symbol)

	if len(clauses) == 0 {
		b.WriteString("No key clauses identified.\n\n")
		return
	}

	items := make([]termfmt.TreeItem, 0, len(clauses))
	for i, clause := range clauses {
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("%d.", i+1),
			Value: clause,
			Last:  i == len(clauses)-1,
		})
	}
	tree := termfmt.TreeViewWithOptions(items, f.opts)
	b.WriteString(tree + "\n\n")
}
