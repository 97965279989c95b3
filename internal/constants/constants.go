// Package constants provides a centralized location for all configuration
// values and magic numbers used throughout the repopin application.
package constants

import "time"

// Search and debounce constants
const (
	// DefaultDebounce is the quiet period after the last keystroke before a
	// search request is issued.
	DefaultDebounce = 1000 * time.Millisecond

	// MaxResults is the maximum number of search results kept for the
	// dropdown. Later pages are never requested.
	MaxResults = 5

	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com/"

	// APIVersion is sent as the X-GitHub-Api-Version header.
	APIVersion = "2022-11-28"

	// RequestTimeout bounds a single search request made outside the TUI.
	RequestTimeout = 30 * time.Second
)

// Stale response policies
const (
	// StaleDiscard applies a search response only when it belongs to the
	// most recently issued search.
	StaleDiscard = "discard"

	// StaleLastWins applies whichever response arrives last.
	StaleLastWins = "last-wins"
)

// TUI display constants
const (
	// StatusDuration is how long a transient status line stays visible.
	StatusDuration = 2 * time.Second

	// NameColumnWidth is the display width reserved for repository names in
	// the dropdown and the table output.
	NameColumnWidth = 40

	// OwnerColumnWidth is the display width reserved for owner logins.
	OwnerColumnWidth = 20
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged. The search API allows 10-30 requests a minute.
	RateLimitLowWatermark = 3
)

// Pins refresh
const (
	// RefreshWorkers bounds concurrent repository lookups during pins refresh.
	RefreshWorkers = 4
)
