package formatter

import (
	"encoding/json"
	"time"

	"github.com/yildizm/ContractSum/internal/api"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// JSONOutput is the document written by the JSON formatter
type JSONOutput struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Count       int               `json:"count"`
	Analyses    []*AnalysisOutput `json:"analyses"`
}

// AnalysisOutput is one analysis with its display notice
type AnalysisOutput struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	Status    api.Status `json:"status"`
	Terminal  bool       `json:"terminal"`
	Notice    string     `json:"notice,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Clauses   []string   `json:"clauses,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (f *jsonFormatter) Format(analyses []*api.Analysis) ([]byte, error) {
	output := &JSONOutput{
		GeneratedAt: time.Now().UTC(),
		Analyses:    make([]*AnalysisOutput, 0, len(analyses)),
	}

	for _, a := range analyses {
		if a == nil {
			continue
		}
		out := &AnalysisOutput{
			ID:        a.ID,
			FileName:  a.FileName,
			Status:    a.Status,
			Terminal:  a.Status.IsTerminal(),
			Notice:    notice(a),
			Summary:   summaryOf(a),
			Clauses:   clausesOf(a),
			CreatedAt: timestampOrNil(a.CreatedAt),
			UpdatedAt: timestampOrNil(a.UpdatedAt),
		}
		if a.Result != nil {
			out.Error = a.Result.Error
		}
		output.Analyses = append(output.Analyses, out)
	}
	output.Count = len(output.Analyses)

	return json.MarshalIndent(output, "", "  ")
}
