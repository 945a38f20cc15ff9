package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an analysis job. Values are owned by the
// backend; the client only classifies them.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// ParseStatus normalizes a raw status string. The second return value is
// false for values outside the known set.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return st, true
	default:
		return st, false
	}
}

// IsTerminal reports whether no further status changes are expected
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the job is still queued or running
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// Label returns a human readable status
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// UnmarshalJSON normalizes case and whitespace
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// Token is the response of the login endpoint
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the account returned by /users/me and /auth/register
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterRequest holds the fields for account creation
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks fields before the request is sent
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return NewValidationError("username", r.Username, "Username is required.")
	}
	if strings.TrimSpace(r.Email) == "" {
		return NewValidationError("email", r.Email, "Email is required.")
	}
	if !strings.Contains(r.Email, "@") {
		return NewValidationError("email", r.Email, "Please enter a valid email address.")
	}
	if r.Password == "" {
		return NewValidationError("password", "", "Password is required.")
	}
	return nil
}

// Analysis is one contract analysis job
type Analysis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FileName  string    `json:"file_name"`
	S3Path    string    `json:"s3_path"`
	Status    Status    `json:"status"`
	Result    *Result   `json:"result"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO 8601 datetimes the
// backend emits. Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil || raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Result holds the AI output for a completed analysis
type Result struct {
	Summary string   `json:"summary"`
	Clauses []string `json:"clauses"`
	Error   string   `json:"error,omitempty"`
}

// UnmarshalJSON accepts clauses as plain strings or as objects with a
// title and a text, content or description field.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Summary json.RawMessage   `json:"summary"`
		Clauses []json.RawMessage `json:"clauses"`
		Error   string            `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Summary = rawText(raw.Summary)
	r.Error = raw.Error
	r.Clauses = make([]string, 0, len(raw.Clauses))
	for _, c := range raw.Clauses {
		if text := NormalizeClause(c); text != "" {
			r.Clauses = append(r.Clauses, text)
		}
	}
	return nil
}

// NormalizeClause flattens a single clause value into display text
func NormalizeClause(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		title := firstText(obj, "title", "name", "clause", "type")
		body := firstText(obj, "text", "content", "description", "summary", "details")
		switch {
		case title != "" && body != "":
			return title + ": " + body
		case title != "":
			return title
		case body != "":
			return body
		}
	}

	return string(raw)
}

func firstText(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if text := rawText(v); text != "" {
				return text
			}
		}
	}
	return ""
}

// rawText decodes a JSON string, falling back to the literal JSON for
// other value kinds.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// ErrorResponse is the FastAPI error envelope. Detail is either a string
// or a list of validation issues.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns the detail flattened into one line
func (e *ErrorResponse) Message() string {
	if len(e.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}

	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg == "" {
				continue
			}
			if field := issueField(issue.Loc); field != "" {
				msgs = append(msgs, field+": "+issue.Msg)
			} else {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// issueField picks the last location element, e.g. ["body", "email"] -> email
func issueField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
