package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/ghclient"
	"github.com/spiffcs/repopin/internal/model"
	"github.com/spiffcs/repopin/internal/search"
)

// focus is the region that receives navigation keys.
type focus int

const (
	focusSearch focus = iota
	focusPanel
)

// RateLimitSource reports the API quota. *ghclient.RateLimitState satisfies it.
type RateLimitSource interface {
	Status() (remaining, limit int, resetAt time.Time, limited bool)
}

// Model is the Bubble Tea model for the search widget.
type Model struct {
	ctx       context.Context
	searcher  search.Searcher
	ctrl      *search.Controller
	rateLimit RateLimitSource

	queries   chan string
	done      chan struct{}
	closeOnce *sync.Once

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	focus        focus
	rowCursor    int
	pinnedCursor int
	inFlight     int

	statusMsg   string
	statusErr   bool
	statusID    int
	windowWidth int
	quitting    bool
	openURL     func(url string) tea.Cmd
}

// ModelOption is a functional option for configuring a Model.
type ModelOption func(*modelOptions)

type modelOptions struct {
	search    []search.Option
	rateLimit RateLimitSource
	openURL   func(url string) tea.Cmd
	query     string
}

// WithQuery prefills the input and schedules a search for it.
func WithQuery(q string) ModelOption {
	return func(o *modelOptions) {
		o.query = q
	}
}

// WithSearchOptions passes options through to the search controller.
func WithSearchOptions(opts ...search.Option) ModelOption {
	return func(o *modelOptions) {
		o.search = append(o.search, opts...)
	}
}

// WithRateLimit shows a warning while the API quota is exhausted.
func WithRateLimit(src RateLimitSource) ModelOption {
	return func(o *modelOptions) {
		o.rateLimit = src
	}
}

// WithURLOpener replaces the browser launcher.
func WithURLOpener(open func(url string) tea.Cmd) ModelOption {
	return func(o *modelOptions) {
		o.openURL = open
	}
}

// NewModel creates the widget model. Debounced queries are handed from the
// timer goroutine to the event loop over a channel.
func NewModel(ctx context.Context, searcher search.Searcher, opts ...ModelOption) Model {
	o := modelOptions{openURL: openURL}
	for _, opt := range opts {
		opt(&o)
	}

	queries := make(chan string)
	done := make(chan struct{})
	fire := func(query string) {
		select {
		case queries <- query:
		case <-done:
		}
	}

	ti := textinput.New()
	ti.Placeholder = "Search GitHub repositories"
	ti.Prompt = promptStyle.Render("> ")
	ti.CharLimit = 256
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	ctrl := search.NewController(fire, o.search...)
	if o.query != "" {
		ti.SetValue(o.query)
		ctrl.OnInput(o.query)
	}

	return Model{
		ctx:       ctx,
		searcher:  searcher,
		ctrl:      ctrl,
		rateLimit: o.rateLimit,
		queries:   queries,
		done:      done,
		closeOnce: &sync.Once{},
		input:     ti,
		spinner:   s,
		help:      help.New(),
		keys:      defaultKeyMap(),
		openURL:   o.openURL,
	}
}

// Close stops the debounce timer and releases any blocked timer callback.
func (m Model) Close() {
	m.closeOnce.Do(func() {
		m.ctrl.Close()
		close(m.done)
	})
}

// Pinned returns the pinned repositories, most recent first.
func (m Model) Pinned() []model.Repository {
	return m.ctrl.Selection().Items()
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForQuery(m.queries, m.done),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case queryFiredMsg:
		req, ok := m.ctrl.StartDebounced(msg.query)
		if !ok {
			return m, waitForQuery(m.queries, m.done)
		}
		m.inFlight++
		return m, tea.Batch(runSearch(m.ctx, m.searcher, req), waitForQuery(m.queries, m.done))

	case searchResultMsg:
		return m.applyResult(msg.resp)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil

	case doneMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyResult(resp search.Response) (tea.Model, tea.Cmd) {
	if m.inFlight > 0 {
		m.inFlight--
	}

	if m.ctrl.Apply(resp) {
		m.rowCursor = 0
		return m, nil
	}
	if resp.Err == nil {
		return m, nil
	}
	return m.setStatus(failureStatus(resp.Err), true)
}

// failureStatus summarizes a search error for the status line. The
// response body goes to the log only.
func failureStatus(err error) string {
	var failed *ghclient.SearchRequestFailed
	switch {
	case errors.Is(err, ghclient.ErrRateLimited):
		return "Search failed: rate limited"
	case errors.As(err, &failed):
		return fmt.Sprintf("Search failed: HTTP %d", failed.StatusCode)
	case errors.Is(err, context.Canceled):
		return "Search canceled"
	default:
		return "Search failed: network error"
	}
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Focus) {
		m.toggleFocus()
		return m, nil
	}

	if m.focus == focusPanel {
		return m.handlePanelKey(msg)
	}
	return m.handleSearchKey(msg)
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.visibleRows()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.rowCursor > 0 {
			m.rowCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.rowCursor < len(rows)-1 {
			m.rowCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(rows) == 0 {
			return m, nil
		}
		return m.activate(rows[m.rowCursor])

	case key.Matches(msg, m.keys.Clear):
		m.input.SetValue("")
		m.ctrl.OnInput("")
		m.rowCursor = 0
		return m, nil

	case msg.String() == "ctrl+o":
		if len(rows) == 0 {
			return m, nil
		}
		if r, ok := m.ctrl.Results().At(rows[m.rowCursor].Index); ok {
			return m.open(r.HTMLURL)
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.OnInput(after)
		m.rowCursor = 0
	}
	return m, cmd
}

func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fragments := m.ctrl.Display().Fragments()
	if len(fragments) == 0 {
		m.setFocus(focusSearch)
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.pinnedCursor > 0 {
			m.pinnedCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.pinnedCursor < len(fragments)-1 {
			m.pinnedCursor++
		}

	case key.Matches(msg, m.keys.Select):
		return m.activate(fragments[m.pinnedCursor].Row)

	case key.Matches(msg, m.keys.Remove):
		return m.activate(fragments[m.pinnedCursor].Remove)

	case key.Matches(msg, m.keys.Open):
		return m.open(fragments[m.pinnedCursor].URL)

	case key.Matches(msg, m.keys.Clear):
		m.setFocus(focusSearch)
	}

	return m, nil
}

// activate routes a row through the controller's dispatch table and
// applies the resulting effect to the view.
func (m Model) activate(row search.Row) (tea.Model, tea.Cmd) {
	effect := m.ctrl.Activate(row)

	if effect.ClearInput {
		m.input.SetValue("")
		m.rowCursor = 0
	}

	switch {
	case effect.Selected:
		m.pinnedCursor = 0
		return m.setStatus("Pinned "+row.Label, false)

	case effect.Removed:
		n := len(m.ctrl.Display().Fragments())
		if m.pinnedCursor >= n && m.pinnedCursor > 0 {
			m.pinnedCursor = n - 1
		}
		if n == 0 {
			m.setFocus(focusSearch)
		}
		return m.setStatus("Unpinned", false)
	}

	return m, nil
}

func (m Model) open(url string) (tea.Model, tea.Cmd) {
	if url == "" {
		return m.setStatus("No URL available", true)
	}
	return m, m.openURL(url)
}

func (m *Model) toggleFocus() {
	if m.focus == focusSearch && len(m.ctrl.Display().Fragments()) > 0 {
		m.setFocus(focusPanel)
		return
	}
	m.setFocus(focusSearch)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusSearch {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

// visibleRows returns the dropdown rows, or none while the dropdown is hidden.
func (m Model) visibleRows() []search.Row {
	if m.ctrl.Display().Hidden(search.ElementDropdown) {
		return nil
	}
	return m.ctrl.Display().DropdownRows()
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.statusID++
	m.statusMsg = text
	m.statusErr = isErr
	return m, clearStatusAfter(m.statusID, constants.StatusDuration)
}

// clearStatusAfter returns a command that clears the status after a delay
func clearStatusAfter(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

// openURL opens a URL in the default browser
func openURL(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd

		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "linux":
			cmd = exec.Command("xdg-open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			return nil
		}

		_ = cmd.Start()
		return nil
	}
}
