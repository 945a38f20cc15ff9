package formatter

import (
	"strings"
	"time"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/ContractSum/internal/api"
)

const timeLayout = "2006-01-02 15:04:05"

// notice returns the status notice for an analysis without a result to show
func notice(a *api.Analysis) string {
	switch {
	case a.Status.IsActive():
		return NoticeAnalyzing
	case a.Status == api.StatusFailed:
		return NoticeFailed
	default:
		return ""
	}
}

// summaryOf returns the summary text or "" when there is no result
func summaryOf(a *api.Analysis) string {
	if a.Result == nil {
		return ""
	}
	return a.Result.Summary
}

// clausesOf returns the normalized clauses or nil when there is no result
func clausesOf(a *api.Analysis) []string {
	if a.Result == nil {
		return nil
	}
	return a.Result.Clauses
}

func formatTime(t api.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// getStatusEmoji returns an emoji for an analysis status using go-termfmt
func getStatusEmoji(status api.Status, opts *termfmt.TerminalOptions) string {
	switch status {
	case api.StatusCompleted:
		return termfmt.GetEmoji("info", opts)
	case api.StatusFailed:
		return termfmt.GetEmoji("error", opts)
	case api.StatusPending, api.StatusInProgress:
		return termfmt.GetEmoji("warning", opts)
	default:
		return termfmt.GetEmoji("insight", opts)
	}
}

// singleLine flattens text for tabular output
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func timestampOrNil(t api.Timestamp) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
