package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/ContractSum/internal/api"
)

// Notices shown instead of a result while a job is unfinished or failed
const (
	NoticeAnalyzing = "Your contract is being analyzed. This may take a few moments..."
	NoticeFailed    = "Analysis failed. Please try uploading your file again."
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(analyses []*api.Analysis) ([]byte, error)
}

// Formats lists the names accepted by New
var Formats = []string{"text", "json", "markdown", "csv", "xlsx"}

// New returns the formatter for a format name. Color and emoji only affect
// text output.
func New(format string, color, emoji bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text", "terminal":
		return NewTerminal(color, emoji), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	case "xlsx", "excel":
		return NewXLSX(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
}

// IsBinary reports whether a format produces non-text output
func IsBinary(format string) bool {
	f := strings.ToLower(format)
	return f == "xlsx" || f == "excel"
}
