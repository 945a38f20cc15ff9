package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/ContractSum/internal/api"
)

// Message types shared across UI models

type sessionRestoredMsg struct {
	user *api.User
	err  error
}

type loginResultMsg struct {
	token string
	user  *api.User
	err   error
}

// loggedInMsg hands a validated token from the auth view to the app
type loggedInMsg struct {
	token string
	user  *api.User
}

type registerResultMsg struct {
	user *api.User
	err  error
}

type uploadResultMsg struct {
	files    int
	analyses []*api.Analysis
	err      error
}

// Poll messages carry the generation of the poll loop that produced them.
// A loop is replaced whenever polling starts or stops.
type pollTickMsg struct {
	id  string
	gen int
}

type analysisFetchedMsg struct {
	id       string
	gen      int
	analysis *api.Analysis
	err      error
}

type logoutMsg struct{}

func restoreSessionCmd(ctx context.Context, store SessionStore, backend Backend) tea.Cmd {
	return func() tea.Msg {
		user, err := store.Restore(ctx, backend)
		return sessionRestoredMsg{user: user, err: err}
	}
}

// loginCmd exchanges credentials for a token and loads the user it belongs to
func loginCmd(ctx context.Context, backend Backend, username, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := backend.Login(ctx, username, password)
		if err != nil {
			return loginResultMsg{err: err}
		}

		backend.SetToken(token.AccessToken)
		user, err := backend.CurrentUser(ctx)
		if err != nil {
			backend.SetToken("")
			return loginResultMsg{err: err}
		}
		return loginResultMsg{token: token.AccessToken, user: user}
	}
}

func registerCmd(ctx context.Context, backend Backend, req *api.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		user, err := backend.Register(ctx, req)
		return registerResultMsg{user: user, err: err}
	}
}

func uploadCmd(ctx context.Context, backend Backend, paths []string) tea.Cmd {
	files := append([]string(nil), paths...)
	return func() tea.Msg {
		analyses, err := backend.UploadContracts(ctx, files)
		return uploadResultMsg{files: len(files), analyses: analyses, err: err}
	}
}

// pollTickCmd schedules the next status fetch for an analysis
func pollTickCmd(id string, gen int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{id: id, gen: gen}
	})
}

func fetchAnalysisCmd(ctx context.Context, backend Backend, id string, gen int) tea.Cmd {
	return func() tea.Msg {
		analysis, err := backend.GetAnalysis(ctx, id)
		return analysisFetchedMsg{id: id, gen: gen, analysis: analysis, err: err}
	}
}

func logoutCmd() tea.Msg {
	return logoutMsg{}
}
