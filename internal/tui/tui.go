// Package tui implements the interactive search-and-pin widget on top of
// Bubble Tea.
package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiffcs/repopin/internal/model"
	"github.com/spiffcs/repopin/internal/search"
	"golang.org/x/term"
)

// Run starts the widget and blocks until the user quits. It returns the
// repositories pinned when the program exited, most recent first.
func Run(ctx context.Context, searcher search.Searcher, opts ...ModelOption) ([]model.Repository, error) {
	m := NewModel(ctx, searcher, opts...)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return nil, err
	}
	return m.Pinned(), nil
}

// ShouldUseTUI returns true if the TUI should be used based on environment.
func ShouldUseTUI() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}

	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"GITLAB_CI",
		"BUILDKITE",
	}

	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return false
		}
	}

	return true
}

// waitForQuery creates a command that waits for the next debounced query,
// or returns doneMsg once the model is closed.
func waitForQuery(queries <-chan string, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case q := <-queries:
			return queryFiredMsg{query: q}
		case <-done:
			return doneMsg{}
		}
	}
}

// runSearch performs the network call off the event loop.
func runSearch(ctx context.Context, s search.Searcher, req search.Request) tea.Cmd {
	return func() tea.Msg {
		return searchResultMsg{resp: search.Execute(ctx, s, req)}
	}
}
