package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/yildizm/ContractSum/internal/api"
)

// csvFormatter formats analyses as CSV, one row per analysis
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

var csvHeaders = []string{
	"ID",
	"File Name",
	"Status",
	"Created At",
	"Updated At",
	"Summary",
	"Clause Count",
	"Clauses",
}

func (f *csvFormatter) Format(analyses []*api.Analysis) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range analyses {
		if a == nil {
			continue
		}
		if err := writer.Write(analysisRecord(a)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}

// analysisRecord flattens an analysis into a row matching csvHeaders
func analysisRecord(a *api.Analysis) []string {
	summary := summaryOf(a)
	if msg := notice(a); msg != "" {
		summary = msg
	}

	clauses := clausesOf(a)
	flat := make([]string, 0, len(clauses))
	for _, c := range clauses {
		flat = append(flat, singleLine(c))
	}

	return []string{
		a.ID,
		a.FileName,
		string(a.Status),
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
		singleLine(summary),
		fmt.Sprintf("%d", len(clauses)),
		strings.Join(flat, " | "),
	}
}
