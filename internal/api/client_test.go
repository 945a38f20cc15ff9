package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = serverURL
	cfg.RequestsPerSecond = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.Timeout = 5 * time.Second
	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeContract(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 contract body "+name), 0o600))
	return path
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.BaseURL = "" }},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://example.com" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"extension without dot", func(c *Config) { c.AllowedExtensions = []string{"pdf"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, &APIError{Type: ErrTypeConfiguration}))
		})
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ana", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-123", "token_type": "bearer"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	token, err := client.Login(context.Background(), "ana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Empty(t, client.Token(), "login must not store the token on the client")
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantAuth    bool
	}{
		{"wrong password", http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`, "Incorrect username or password", true},
		{"server error without detail", http.StatusInternalServerError, `oops`, MsgLoginFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.Login(context.Background(), "ana", "bad")
			require.Error(t, err)
			assert.Equal(t, tt.wantMessage, UserMessage(err, MsgLoginFailed))
			assert.Equal(t, tt.wantAuth, IsAuthenticationError(err))
			assert.Equal(t, int32(1), calls.Load(), "POST requests are never retried")
		})
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.Login(context.Background(), "", "pw")
	assert.True(t, IsValidationError(err))
	_, err = client.Login(context.Background(), "ana", "")
	assert.True(t, IsValidationError(err))
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "pw"}, req)
		writeJSON(w, http.StatusOK, User{ID: "u-1", Username: req.Username, Email: req.Email})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	user, err := client.Register(context.Background(), &RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Empty(t, client.Token())
}

func TestRegisterErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already registered"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Register(context.Background(), &RegisterRequest{Username: "ana", Email: "not-an-email", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid email address.", UserMessage(err, MsgRegisterFailed))
	assert.Equal(t, int32(0), calls.Load(), "invalid input must not reach the server")

	_, err = client.Register(context.Background(), &RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "Username already registered", UserMessage(err, MsgRegisterFailed))
	assert.True(t, IsValidationError(err))
}

func TestCurrentUserSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: "u-1", Username: "ana", Email: "ana@example.com"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.CurrentUser(context.Background())
	assert.True(t, IsAuthenticationError(err), "no token means no request")

	client.SetToken("wrong")
	_, err = client.CurrentUser(context.Background())
	assert.True(t, IsAuthenticationError(err))

	client.SetToken("tok-123")
	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
}

func TestRequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		assert.Equal(t, "contractsum/test", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome"})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.UserAgent = "contractsum/test"
	client, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestUploadContracts(t *testing.T) {
	dir := t.TempDir()
	first := writeContract(t, dir, "lease.pdf")
	second := writeContract(t, dir, "nda.docx")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/analyses/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "lease.pdf", files[0].Filename)
		assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))
		assert.Equal(t, "nda.docx", files[1].Filename)

		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "a1", "file_name": "lease.pdf", "status": "PENDING"},
			{"id": "a2", "file_name": "nda.docx", "status": "PENDING"},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.SetToken("tok")

	analyses, err := client.UploadContracts(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, "a1", analyses[0].ID)
	assert.Equal(t, StatusPending, analyses[0].Status)
}

func TestUploadValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := newTestClient(t, srv.URL)
	client.Config().MaxFileSize = 10

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"no files", nil, MsgNoFilesSelected},
		{"unsupported type", []string{writeContract(t, dir, "notes.txt")}, `Unsupported file type ".txt". Allowed: .pdf, .docx.`},
		{"missing file", []string{filepath.Join(dir, "ghost.pdf")}, "Cannot read ghost.pdf."},
		{"too large", []string{writeContract(t, dir, "big.pdf")}, "big.pdf exceeds the 10 byte upload limit."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.UploadContracts(context.Background(), tt.paths)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.want, UserMessage(err, MsgUploadFailed))
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "empty list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []any{})
			},
			want: MsgNoAnalysisData,
		},
		{
			name: "server failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: MsgUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.UploadContracts(context.Background(), []string{writeContract(t, t.TempDir(), "a.pdf")})
			require.Error(t, err)
			assert.Equal(t, tt.want, UserMessage(err, MsgUploadFailed))
		})
	}
}

func TestGetAnalysisRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  []int
		wantCalls int32
		wantErr   bool
	}{
		{"recovers from 503", []int{http.StatusServiceUnavailable}, 2, false},
		{"recovers from 429", []int{http.StatusTooManyRequests, http.StatusTooManyRequests}, 3, false},
		{"gives up after max retries", []int{500, 500, 500, 500}, 4, true},
		{"does not retry 404", []int{http.StatusNotFound}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1))
				assert.Equal(t, "/api/v1/analyses/abc", r.URL.Path)
				if n <= len(tt.failures) {
					writeJSON(w, tt.failures[n-1], map[string]string{"detail": "try later"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"id": "abc", "status": "IN_PROGRESS"})
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			analysis, err := client.GetAnalysis(context.Background(), "abc")
			assert.Equal(t, tt.wantCalls, calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusInProgress, analysis.Status)
		})
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Analysis not found"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsRetryableError(err))
	assert.Equal(t, "Analysis not found", UserMessage(err, MsgFetchStatusFailed))

	_, err = client.GetAnalysis(context.Background(), "  ")
	assert.True(t, IsValidationError(err))
}

func TestGetAnalysisCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := client.GetAnalysis(ctx, "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsRetryableError(err))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 0, parseRetryAfter(""))
	assert.Equal(t, 7, parseRetryAfter("7"))
	assert.Equal(t, 0, parseRetryAfter("-1"))
	assert.Equal(t, 0, parseRetryAfter("soon"))
}
