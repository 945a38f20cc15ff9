package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/emoji"
	"github.com/yildizm/ContractSum/internal/formatter"
	"github.com/yildizm/ContractSum/internal/logger"
	"github.com/yildizm/ContractSum/internal/poller"
	"github.com/yildizm/ContractSum/internal/session"
	"github.com/yildizm/ContractSum/internal/ui/components"
)

const (
	historySize   = 10
	historyLayout = "2006-01-02 15:04"
)

// MainModel selects contracts, uploads them and follows the first analysis
type MainModel struct {
	ctx      context.Context
	backend  Backend
	store    SessionStore
	log      *logger.Logger
	styles   *Styles
	interval time.Duration

	user     *api.User
	picker   filepicker.Model
	selected []string

	analysis  *api.Analysis
	pollingID string // analysis the outstanding tick belongs to
	pollGen   int    // current poll loop; messages from older loops are dropped

	spinner   spinner.Model
	uploading bool
	message   string
	err       string

	history     *components.List
	showHistory bool

	renderer *glamour.TermRenderer
	width    int
}

// NewMainModel creates the main view for a logged in user
func NewMainModel(opts Options, user *api.User) *MainModel {
	fp := filepicker.New()
	fp.AllowedTypes = opts.AllowedTypes
	fp.CurrentDirectory = opts.StartDir
	fp.Height = 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	interval := opts.PollInterval
	if interval <= 0 {
		interval = poller.DefaultInterval
	}

	return &MainModel{
		ctx:      opts.Context,
		backend:  opts.Backend,
		store:    opts.Session,
		log:      opts.Log,
		styles:   GetStyles(),
		interval: interval,
		user:     user,
		picker:   fp,
		spinner:  sp,
		renderer: newRenderer(80),
	}
}

func newRenderer(width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// User returns the logged in user
func (m *MainModel) User() *api.User {
	return m.user
}

// Selected returns the selected file paths in order of selection
func (m *MainModel) Selected() []string {
	return append([]string(nil), m.selected...)
}

// Analysis returns the most recent analysis record
func (m *MainModel) Analysis() *api.Analysis {
	return m.analysis
}

// Polling reports whether a status poll is scheduled
func (m *MainModel) Polling() bool {
	return m.pollingID != ""
}

// Message returns the status line
func (m *MainModel) Message() string {
	return m.message
}

// Err returns the error line
func (m *MainModel) Err() string {
	return m.err
}

// HistoryVisible reports whether the recent analyses panel is open
func (m *MainModel) HistoryVisible() bool {
	return m.showHistory
}

// Init initializes the main model
func (m *MainModel) Init() tea.Cmd {
	return m.picker.Init()
}

// Update handles navigation, uploads and poll results
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		if !m.uploading && m.pollingID == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case uploadResultMsg:
		return m.handleUploadResult(msg)

	case pollTickMsg:
		if !m.current(msg.id, msg.gen) {
			return m, nil
		}
		return m, fetchAnalysisCmd(m.ctx, m.backend, msg.id, msg.gen)

	case analysisFetchedMsg:
		return m.handleAnalysisFetched(msg)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *MainModel) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.picker.Height = max(5, msg.Height-20)

	wrap := min(100, max(40, msg.Width-4))
	if renderer := newRenderer(wrap); renderer != nil {
		m.renderer = renderer
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *MainModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "o":
		return m, logoutCmd
	case "h":
		m.openHistory()
		return m, nil
	case "u":
		return m, m.upload()
	case "x":
		m.selected = nil
		m.err = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
		m.toggle(path)
	}
	if didSelect, path := m.picker.DidSelectDisabledFile(msg); didSelect {
		m.err = fmt.Sprintf("Unsupported file type %q.", filepath.Ext(path))
	}

	return m, cmd
}

func (m *MainModel) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "h", "esc":
		m.showHistory = false
	case "up", "k":
		m.history.MoveUp()
	case "down", "j":
		m.history.MoveDown()
	case "enter":
		item := m.history.GetSelectedItem()
		if item == nil {
			return m, nil
		}
		m.showHistory = false
		return m, m.resume(item.ID)
	}
	return m, nil
}

func (m *MainModel) openHistory() {
	var recent []session.RecentAnalysis
	if m.store != nil {
		recent = m.store.Recent(historySize)
	}
	width := 60
	if m.width > 0 {
		width = min(100, max(40, m.width-4))
	}
	m.history = components.NewHistoryList(recent, historyLayout, width, historySize+4)
	m.history.SetFocused(true)
	m.showHistory = true
}

// resume fetches an earlier analysis and follows it like a fresh upload
func (m *MainModel) resume(id string) tea.Cmd {
	if m.uploading {
		return nil
	}
	m.message = ""
	m.err = ""
	gen := m.startPolling(id)
	return tea.Batch(fetchAnalysisCmd(m.ctx, m.backend, id, gen), m.spinner.Tick)
}

// startPolling begins a new poll loop for id, retiring any earlier one
func (m *MainModel) startPolling(id string) int {
	m.pollGen++
	m.pollingID = id
	return m.pollGen
}

func (m *MainModel) stopPolling() {
	m.pollGen++
	m.pollingID = ""
}

// current reports whether a poll message belongs to the live loop
func (m *MainModel) current(id string, gen int) bool {
	return id != "" && id == m.pollingID && gen == m.pollGen
}

// toggle adds a file to the selection or removes it when already selected
func (m *MainModel) toggle(path string) {
	m.err = ""
	for i, p := range m.selected {
		if p == path {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			return
		}
	}
	m.selected = append(m.selected, path)
}

// upload sends every selected file in one request
func (m *MainModel) upload() tea.Cmd {
	if m.uploading {
		return nil
	}
	m.message = ""
	m.err = ""

	if len(m.selected) == 0 {
		m.err = api.MsgNoFilesSelected
		return nil
	}

	// The previous result is replaced by the new upload
	m.stopPolling()
	m.analysis = nil

	m.uploading = true
	return tea.Batch(uploadCmd(m.ctx, m.backend, m.selected), m.spinner.Tick)
}

func (m *MainModel) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	m.uploading = false

	if msg.err != nil {
		m.err = api.UserMessage(msg.err, api.MsgUploadFailed)
		return m, nil
	}
	if len(msg.analyses) == 0 || msg.analyses[0] == nil {
		m.err = api.MsgNoAnalysisData
		return m, nil
	}

	first := msg.analyses[0]
	m.analysis = first
	m.selected = nil
	m.message = fmt.Sprintf("Successfully uploaded %d file(s). Analysis started for %s.", msg.files, first.FileName)
	m.remember(first)

	// A new upload supersedes any earlier poll
	if !first.Status.IsActive() {
		m.stopPolling()
		return m, nil
	}
	gen := m.startPolling(first.ID)
	return m, pollTickCmd(first.ID, gen, m.interval)
}

func (m *MainModel) handleAnalysisFetched(msg analysisFetchedMsg) (tea.Model, tea.Cmd) {
	if !m.current(msg.id, msg.gen) {
		return m, nil
	}

	if msg.err != nil {
		m.stopPolling()
		m.err = api.MsgFetchStatusFailed
		if m.log != nil {
			m.log.WarnWithFields("Poll failed", []logger.Field{logger.F("analysis_id", msg.id), logger.Error(msg.err)})
		}
		return m, nil
	}

	m.analysis = msg.analysis
	m.remember(msg.analysis)

	if msg.analysis.Status.IsTerminal() {
		m.stopPolling()
		return m, nil
	}
	return m, pollTickCmd(msg.id, msg.gen, m.interval)
}

func (m *MainModel) remember(a *api.Analysis) {
	if m.store == nil {
		return
	}
	if err := m.store.Remember(a); err != nil && m.log != nil {
		m.log.Warn("Failed to save analysis history: %v", err)
	}
}

// View renders the main view
func (m *MainModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader() + "\n\n")

	if m.showHistory {
		b.WriteString(m.history.Render() + "\n")
		b.WriteString("\n" + render(m.styles.Muted, "↑/↓: move • enter: open • h/esc: close • q: quit"))
		return b.String()
	}

	b.WriteString(render(m.styles.Header, "Select contracts") + "\n")
	b.WriteString(m.picker.View() + "\n")
	b.WriteString(m.renderSelection() + "\n")

	switch {
	case m.uploading:
		b.WriteString(m.spinner.View() + " Uploading...\n")
	case m.err != "":
		b.WriteString(render(m.styles.Error, emoji.GetEmoji("error")+" "+m.err) + "\n")
	case m.message != "":
		b.WriteString(render(m.styles.Success, emoji.GetEmoji("success")+" "+m.message) + "\n")
	}

	if m.analysis != nil {
		b.WriteString("\n" + m.renderAnalysis())
	}

	b.WriteString("\n" + render(m.styles.Muted, "enter: toggle file • u: upload • x: clear • h: history • o: logout • q: quit"))

	return b.String()
}

func (m *MainModel) renderHeader() string {
	name := "unknown"
	if m.user != nil {
		name = m.user.Username
	}
	return render(m.styles.Title, emoji.GetEmoji("contract")+" ContractSum") +
		render(m.styles.Muted, "  "+emoji.GetEmoji("user")+" "+name)
}

func (m *MainModel) renderSelection() string {
	if len(m.selected) == 0 {
		return render(m.styles.Muted, "No files selected.")
	}

	sorted := append([]string(nil), m.selected...)
	sort.Strings(sorted)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", render(m.styles.Header, "Selected"), len(sorted))
	for _, p := range sorted {
		b.WriteString("  " + emoji.GetEmoji("selected") + " " + filepath.Base(p) + "\n")
	}
	return b.String()
}

// renderAnalysis shows the result, or the notice for an unfinished or failed job
func (m *MainModel) renderAnalysis() string {
	a := m.analysis

	var b strings.Builder
	title := fmt.Sprintf("%s %s  %s", emoji.ForStatus(string(a.Status)), a.FileName, a.Status.Label())
	b.WriteString(render(m.styles.Header, title) + "\n\n")

	switch {
	case a.Status.IsActive():
		line := formatter.NoticeAnalyzing
		if m.pollingID != "" {
			line = m.spinner.View() + " " + line
		}
		b.WriteString(render(m.styles.Warning, line) + "\n")
		return render(m.styles.Panel, b.String())
	case a.Status == api.StatusFailed:
		b.WriteString(render(m.styles.Error, formatter.NoticeFailed) + "\n")
		return render(m.styles.Panel, b.String())
	}

	if a.Result == nil {
		b.WriteString(render(m.styles.Muted, "No result available.") + "\n")
		return render(m.styles.Panel, b.String())
	}

	b.WriteString(m.renderSummary(a.Result.Summary))

	b.WriteString(render(m.styles.Header, emoji.GetEmoji("clause")+" Key Clauses") + "\n")
	if len(a.Result.Clauses) == 0 {
		b.WriteString(render(m.styles.Muted, "No key clauses identified.") + "\n")
	}
	for _, clause := range a.Result.Clauses {
		b.WriteString("  • " + clause + "\n")
	}

	return render(m.styles.Panel, b.String())
}

func (m *MainModel) renderSummary(summary string) string {
	md := "## Summary\n\n" + summary
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			return out
		}
	}
	return render(m.styles.Header, emoji.GetEmoji("summary")+" Summary") + "\n" + summary + "\n\n"
}
