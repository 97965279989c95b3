package tui

import (
	"github.com/spiffcs/repopin/internal/search"
)

// queryFiredMsg carries a query whose debounce period elapsed.
type queryFiredMsg struct {
	query string
}

// searchResultMsg carries a finished search back into the event loop.
type searchResultMsg struct {
	resp search.Response
}

// clearStatusMsg is a message to clear the status line. Only the status
// with the matching id is cleared.
type clearStatusMsg struct {
	id int
}

// doneMsg signals that the model was closed.
type doneMsg struct{}
