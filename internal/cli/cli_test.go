package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/ContractSum/internal/formatter"
)

const testToken = "tok-alice"

// fakeBackend emulates the contracts API. Each analysis reports IN_PROGRESS
// on its first status request and COMPLETED afterwards.
type fakeBackend struct {
	mu      sync.Mutex
	uploads int
	files   map[string]string
	polls   map[string]int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{files: make(map[string]string), polls: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(fb.serveHTTP))
	t.Cleanup(srv.Close)
	return fb, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func analysisJSON(id, file, status string, withResult bool) map[string]any {
	a := map[string]any{
		"id":         id,
		"user_id":    "1",
		"file_name":  file,
		"s3_path":    "uploads/" + file,
		"status":     status,
		"result":     nil,
		"created_at": "2025-08-11T10:00:00.123456",
		"updated_at": "2025-08-11T10:00:05",
	}
	if withResult {
		a["result"] = map[string]any{
			"summary": "Summary of " + file,
			"clauses": []any{"Term: 12 months", map[string]string{"title": "Payment", "text": "Net 30"}},
		}
	}
	return a
}

func (fb *fakeBackend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	authorized := r.Header.Get("Authorization") == "Bearer "+testToken

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the AI Contracts Manager API"})

	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/token":
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": testToken, "token_type": "bearer"})

	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/register":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] == "taken" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already registered"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "2", "username": body["username"], "email": body["email"]})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users/me":
		if !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "alice", "email": "alice@example.com"})

	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/analyses/":
		if !authorized {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		fb.mu.Lock()
		var out []map[string]any
		for _, fh := range r.MultipartForm.File["files"] {
			fb.uploads++
			id := fmt.Sprintf("an-%d", fb.uploads)
			fb.files[id] = fh.Filename
			out = append(out, analysisJSON(id, fh.Filename, "PENDING", false))
		}
		fb.mu.Unlock()
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/analyses/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/analyses/")
		fb.mu.Lock()
		file, ok := fb.files[id]
		fb.polls[id]++
		n := fb.polls[id]
		fb.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Analysis not found"})
			return
		}
		if n == 1 {
			writeJSON(w, http.StatusOK, analysisJSON(id, file, "IN_PROGRESS", false))
			return
		}
		writeJSON(w, http.StatusOK, analysisJSON(id, file, "COMPLETED", true))

	default:
		http.NotFound(w, r)
	}
}

func (fb *fakeBackend) uploadCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.uploads
}

// setupEnv isolates configuration and the session file for one test
func setupEnv(t *testing.T, serverURL string) string {
	t.Helper()
	home := t.TempDir()
	sessionFile := filepath.Join(home, "session.yaml")

	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CONTRACTSUM_SERVER_BASE_URL", serverURL)
	t.Setenv("CONTRACTSUM_SERVER_REQUESTS_PER_SECOND", "0")
	t.Setenv("CONTRACTSUM_POLLING_INTERVAL", "5ms")
	t.Setenv("CONTRACTSUM_SESSION_FILE", sessionFile)
	return sessionFile
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("test", "abc123", "2025-08-11")

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-emoji"}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func login(t *testing.T) {
	t.Helper()
	_, _, err := runCLI(t, "secret\n", "login", "-u", "alice", "--password-stdin")
	require.NoError(t, err)
}

func writeContract(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 "+name), 0o600))
	return path
}

func decodeReport(t *testing.T, out string) formatter.JSONOutput {
	t.Helper()
	var doc formatter.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestLogin(t *testing.T) {
	_, srv := newFakeBackend(t)
	sessionFile := setupEnv(t, srv.URL)

	stdout, _, err := runCLI(t, "secret\n", "login", "-u", "alice", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged in as alice")

	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(sessionFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), testToken)
}

func TestLoginPromptsForUsername(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	stdout, _, err := runCLI(t, "alice\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged in as alice")
}

func TestLoginRejected(t *testing.T) {
	_, srv := newFakeBackend(t)
	sessionFile := setupEnv(t, srv.URL)

	_, _, err := runCLI(t, "wrong\n", "login", "-u", "alice", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", err.Error())

	_, statErr := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(statErr), "no session is written for a failed login")
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	stdout, _, err := runCLI(t, "pw\n", "register", "-u", "bob", "-e", "bob@example.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Account created for bob")

	_, _, err = runCLI(t, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestRegisterErrors(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	_, _, err := runCLI(t, "pw\n", "register", "-u", "taken", "-e", "t@example.com", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, "Username already registered", err.Error())

	_, _, err = runCLI(t, "pw\n", "register", "-u", "bob", "-e", "bob.example.com", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid email address.", err.Error())
}

func TestWhoamiAndLogout(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	stdout, _, err := runCLI(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice <alice@example.com>")

	stdout, _, err = runCLI(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out")

	_, _, err = runCLI(t, "", "whoami")
	require.Error(t, err)
}

func TestExpiredSessionIsRemoved(t *testing.T) {
	_, srv := newFakeBackend(t)
	sessionFile := setupEnv(t, srv.URL)

	content := fmt.Sprintf("token: stale\nusername: alice\nbase_url: %s\n", srv.URL)
	require.NoError(t, os.WriteFile(sessionFile, []byte(content), 0o600))

	_, _, err := runCLI(t, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")

	data, err := os.ReadFile(sessionFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestUploadRequiresLogin(t *testing.T) {
	fb, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	_, _, err := runCLI(t, "", "upload", writeContract(t, "lease.pdf"))
	require.Error(t, err)
	assert.Equal(t, 0, fb.uploadCount())
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	fb, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	_, _, err := runCLI(t, "", "upload", writeContract(t, "notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported file type")
	assert.Equal(t, 0, fb.uploadCount())
}

func TestUploadWait(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	stdout, stderr, err := runCLI(t, "", "upload", "--wait", "-o", "json", writeContract(t, "lease.pdf"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Successfully uploaded 1 file(s). Analysis started for lease.pdf.")

	doc := decodeReport(t, stdout)
	require.Len(t, doc.Analyses, 1)
	got := doc.Analyses[0]
	assert.Equal(t, "COMPLETED", string(got.Status))
	assert.Equal(t, "Summary of lease.pdf", got.Summary)
	assert.Equal(t, []string{"Term: 12 months", "Payment: Net 30"}, got.Clauses)
}

func TestUploadWithoutWaitPrintsPending(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	stdout, _, err := runCLI(t, "", "upload", writeContract(t, "lease.pdf"))
	require.NoError(t, err)
	assert.Contains(t, stdout, formatter.NoticeAnalyzing)
}

func TestUploadAll(t *testing.T) {
	fb, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	stdout, stderr, err := runCLI(t, "", "upload", "--all", "-o", "json",
		writeContract(t, "lease.pdf"), writeContract(t, "nda.docx"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Successfully uploaded 2 file(s). Analysis started for lease.pdf.")
	assert.Equal(t, 2, fb.uploadCount())

	doc := decodeReport(t, stdout)
	require.Len(t, doc.Analyses, 2)
	assert.Equal(t, "lease.pdf", doc.Analyses[0].FileName)
	assert.Equal(t, "nda.docx", doc.Analyses[1].FileName)
	for _, a := range doc.Analyses {
		assert.True(t, a.Terminal)
	}
}

func TestStatusAndHistory(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)

	_, _, err := runCLI(t, "", "upload", writeContract(t, "lease.pdf"))
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "", "status", "--watch", "-o", "markdown", "an-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "## lease.pdf")
	assert.Contains(t, stdout, "1. Term: 12 months")

	_, _, err = runCLI(t, "", "status", "missing")
	require.Error(t, err)
	assert.Equal(t, "Analysis not found", err.Error())

	stdout, _, err = runCLI(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "│ ID ")
	assert.Contains(t, stdout, "│ an-1 ")
	assert.Contains(t, stdout, "lease.pdf")
	assert.Contains(t, stdout, "Completed")

	stdout, _, err = runCLI(t, "", "history", "-o", "json")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries), stdout)
	require.Len(t, entries, 1)
	assert.Equal(t, "an-1", entries[0]["id"])
	assert.Equal(t, "lease.pdf", entries[0]["file_name"])
	assert.Equal(t, "COMPLETED", entries[0]["status"])
	assert.Contains(t, entries[0], "updated_at")
}

func TestBinaryOutputNeedsFile(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)
	login(t)
	contract := writeContract(t, "lease.pdf")

	_, _, err := runCLI(t, "", "upload", "-o", "xlsx", contract)
	require.Error(t, err)

	report := filepath.Join(t.TempDir(), "report.xlsx")
	_, _, err = runCLI(t, "", "upload", "-o", "xlsx", "--output-file", report, contract)
	require.NoError(t, err)

	info, err := os.Stat(report)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestConfigCommands(t *testing.T) {
	setupEnv(t, "http://localhost:8000")
	path := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := runCLI(t, "", "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration file created")

	_, _, err = runCLI(t, "", "config", "init", "--path", path)
	require.Error(t, err, "existing file is not overwritten without --force")

	stdout, _, err = runCLI(t, "", "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration is valid")

	stdout, _, err = runCLI(t, "", "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"base_url": "http://localhost:8000"`)
}

func TestConfigValidatePing(t *testing.T) {
	_, srv := newFakeBackend(t)
	setupEnv(t, srv.URL)

	stdout, _, err := runCLI(t, "", "config", "validate", "--ping")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Server reachable at "+srv.URL)

	srv.Close()
	t.Setenv("CONTRACTSUM_SERVER_MAX_RETRIES", "0")
	_, _, err = runCLI(t, "", "config", "validate", "--ping")
	require.Error(t, err)
}

func TestInvalidOutputFormat(t *testing.T) {
	setupEnv(t, "http://localhost:8000")

	_, _, err := runCLI(t, "", "-o", "yaml", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ContractSum test (abc123) built on 2025-08-11")
}
