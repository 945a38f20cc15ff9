package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/emoji"
	"github.com/yildizm/ContractSum/internal/session"
)

// ListItem represents an item in a list
type ListItem struct {
	ID          string
	Title       string
	Description string
	Status      string // success, warning, error or info
	Icon        string
}

// List is a navigable, filterable list with a scrolling window
type List struct {
	Title       string
	Items       []ListItem
	Selected    int
	Focused     bool
	Width       int
	Height      int
	ShowNumbers bool
	ShowIcons   bool

	searchQuery   string
	filteredItems []int // indices into Items
}

// NewList creates a new list component
func NewList(title string, width, height int) *List {
	return &List{
		Title:       title,
		Width:       width,
		Height:      height,
		ShowNumbers: true,
		ShowIcons:   true,
	}
}

// AddItem appends an item
func (l *List) AddItem(item *ListItem) {
	l.Items = append(l.Items, *item)
	l.updateFilter()
}

// SetItems replaces all items and resets the selection
func (l *List) SetItems(items []ListItem) {
	l.Items = items
	l.Selected = 0
	l.updateFilter()
}

// SetFocused sets the focus state of the list
func (l *List) SetFocused(focused bool) {
	l.Focused = focused
}

// Len returns the number of visible items
func (l *List) Len() int {
	return len(l.filteredItems)
}

// GetSelectedItem returns the highlighted item, or nil when the list is empty
func (l *List) GetSelectedItem() *ListItem {
	if l.Selected < 0 || l.Selected >= len(l.filteredItems) {
		return nil
	}
	return &l.Items[l.filteredItems[l.Selected]]
}

// MoveUp moves selection up
func (l *List) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
	}
}

// MoveDown moves selection down
func (l *List) MoveDown() {
	if l.Selected < len(l.filteredItems)-1 {
		l.Selected++
	}
}

// SetSearch filters items by id, title or description
func (l *List) SetSearch(query string) {
	l.searchQuery = query
	l.Selected = 0
	l.updateFilter()
}

func (l *List) updateFilter() {
	l.filteredItems = l.filteredItems[:0]
	for i := range l.Items {
		if l.searchQuery == "" || matchesSearch(&l.Items[i], l.searchQuery) {
			l.filteredItems = append(l.filteredItems, i)
		}
	}
	if l.Selected >= len(l.filteredItems) {
		l.Selected = max(0, len(l.filteredItems)-1)
	}
}

func matchesSearch(item *ListItem, query string) bool {
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query) ||
		strings.Contains(strings.ToLower(item.ID), query)
}

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	selectedColor  = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A8A"}
	successColor   = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	warningColor   = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
)

// Render renders the list
func (l *List) Render() string {
	headerStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	normalStyle := lipgloss.NewStyle().Foreground(secondaryColor)

	content := []string{headerStyle.Render(l.Title)}

	if l.searchQuery != "" {
		content = append(content, normalStyle.Render(
			fmt.Sprintf("Search: %s (%d results)", l.searchQuery, len(l.filteredItems))))
	}
	content = append(content, "")

	if len(l.filteredItems) == 0 {
		content = append(content, normalStyle.Render("Nothing here yet."))
	}

	// Title and spacing take four rows
	maxVisible := max(1, l.Height-4)

	start := 0
	if l.Selected >= maxVisible {
		start = l.Selected - maxVisible + 1
	}
	end := min(start+maxVisible, len(l.filteredItems))

	for i := start; i < end; i++ {
		item := l.Items[l.filteredItems[i]]
		content = append(content, l.renderItem(&item, i+1, i == l.Selected))
	}

	if len(l.filteredItems) > maxVisible {
		content = append(content, "", normalStyle.Render(
			fmt.Sprintf("(%d-%d of %d)", start+1, end, len(l.filteredItems))))
	}

	joined := lipgloss.JoinVertical(lipgloss.Left, content...)

	border := secondaryColor
	if l.Focused {
		border = primaryColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(l.Width).
		Render(joined)
}

func (l *List) renderItem(item *ListItem, number int, selected bool) string {
	var parts []string
	if l.ShowNumbers {
		parts = append(parts, fmt.Sprintf("%2d.", number))
	}
	if l.ShowIcons && item.Icon != "" {
		parts = append(parts, item.Icon)
	}

	title := item.Title
	if item.Description != "" {
		title += " - " + item.Description
	}
	parts = append(parts, title)
	line := strings.Join(parts, " ")

	style := lipgloss.NewStyle().Foreground(secondaryColor)
	switch {
	case selected && l.Focused:
		style = lipgloss.NewStyle().Background(selectedColor).Foreground(primaryColor)
	case item.Status == "success":
		style = style.Foreground(successColor)
	case item.Status == "warning":
		style = style.Foreground(warningColor)
	case item.Status == "error":
		style = style.Foreground(errorColor)
	case item.Status == "info":
		style = style.Foreground(primaryColor)
	}

	return style.Width(max(1, l.Width-4)).Render(line)
}

// NewHistoryList builds a list of recently tracked analyses, newest first
func NewHistoryList(recent []session.RecentAnalysis, timeLayout string, width, height int) *List {
	list := NewList("Recent analyses", width, height)

	for _, r := range recent {
		description := r.Status.Label()
		if !r.UpdatedAt.IsZero() {
			description += " (" + r.UpdatedAt.Local().Format(timeLayout) + ")"
		}

		title := r.FileName
		if title == "" {
			title = r.ID
		}

		list.AddItem(&ListItem{
			ID:          r.ID,
			Title:       title,
			Description: description,
			Status:      statusClass(r.Status),
			Icon:        emoji.ForStatus(string(r.Status)),
		})
	}

	return list
}

func statusClass(s api.Status) string {
	switch {
	case s == api.StatusCompleted:
		return "success"
	case s == api.StatusFailed:
		return "error"
	case s.IsActive():
		return "warning"
	default:
		return "info"
	}
}
