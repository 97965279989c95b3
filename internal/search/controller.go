// Package search implements the debounced search-to-selection pipeline:
// keystrokes are debounced into repository searches, results populate a
// dropdown, and activating a row pins or unpins a repository.
//
// A Controller is not safe for concurrent use. All methods except Execute
// must be called from a single event loop; Execute performs the network call
// and may run anywhere.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/ghclient"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
)

// Searcher runs a repository search.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string) ([]model.Repository, error)
}

// Persister saves the pinned list whenever it changes.
type Persister interface {
	Save(repos []model.Repository) error
}

// Request identifies one issued search.
type Request struct {
	Seq   uint64
	Query string
}

// Response is the outcome of a Request.
type Response struct {
	Seq     uint64
	Query   string
	Results []model.Repository
	Err     error
}

// Effect tells the caller what changed outside the controller's own state.
type Effect struct {
	Selected   bool
	Removed    bool
	ClearInput bool
}

// Controller owns the widget state: the debounce timer, the result cache,
// the selection store and the display.
type Controller struct {
	debouncer *Debouncer
	results   *ResultCache
	selection *SelectionStore
	display   *Display
	persister Persister

	query  string
	seq    uint64 // last issued sequence number
	valid  uint64 // responses with a lower sequence number are stale
	policy string

	dispatch map[RowKind]func(Row) Effect
}

// Option is a functional option for configuring a Controller.
type Option func(*options)

type options struct {
	delay     time.Duration
	limit     int
	policy    string
	scheduler Scheduler
	persister Persister
	initial   []model.Repository
}

// WithDelay sets the debounce quiet period.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithResultLimit caps the number of results kept for the dropdown.
func WithResultLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithStalePolicy selects how out-of-order responses are handled
// (constants.StaleDiscard or constants.StaleLastWins).
func WithStalePolicy(policy string) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithPersister saves the pinned list after every change.
func WithPersister(p Persister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithInitialSelection restores previously pinned repositories, given most
// recent first.
func WithInitialSelection(repos []model.Repository) Option {
	return func(o *options) {
		o.initial = repos
	}
}

// NewController creates a controller. fire is called, possibly from another
// goroutine, when the debounce period for a query elapses; the caller must
// hand the query back to StartDebounced on its event loop.
func NewController(fire func(query string), opts ...Option) *Controller {
	o := options{
		delay:  constants.DefaultDebounce,
		limit:  constants.MaxResults,
		policy: constants.StaleDiscard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit <= 0 || o.limit > constants.MaxResults {
		o.limit = constants.MaxResults
	}

	c := &Controller{
		debouncer: NewDebouncer(o.delay, o.scheduler, fire),
		results:   NewResultCache(o.limit),
		selection: NewSelectionStore(),
		display:   NewDisplay(),
		persister: o.persister,
		policy:    o.policy,
	}
	c.dispatch = map[RowKind]func(Row) Effect{
		RowDropdown:  c.selectRow,
		RowSelection: func(Row) Effect { return Effect{} },
		RowRemove:    c.removeRow,
	}

	for i := len(o.initial) - 1; i >= 0; i-- {
		r := o.initial[i]
		if c.selection.Add(r) {
			c.display.prepend(NewFragment(r))
		}
	}
	if c.selection.Len() > 0 {
		c.display.SetHidden(ElementPanel, false)
	}

	return c
}

// OnInput handles a change of the input text.
func (c *Controller) OnInput(query string) {
	c.query = query

	if query != "" {
		log.Trace("debounce scheduled", "query", query, "delay", c.debouncer.Delay())
		c.debouncer.Schedule(query)
		return
	}

	c.debouncer.Cancel()
	c.invalidate()
	c.results.Clear()
	c.resetDropdown()
}

// StartDebounced starts the search for a query delivered by the debounce
// timer. It returns false when the input changed or was cleared after the
// timer fired, in which case no search is issued.
func (c *Controller) StartDebounced(query string) (Request, bool) {
	if !c.debouncer.Claim(query) || query != c.query {
		log.Debug("dropping superseded query", "query", query, "current", c.query)
		return Request{}, false
	}
	return c.StartSearch(query), true
}

// StartSearch issues a sequence number for query, then run Execute and pass
// its Response to Apply.
func (c *Controller) StartSearch(query string) Request {
	c.seq++
	log.Debug("search started", "query", query, "seq", c.seq)
	return Request{Seq: c.seq, Query: query}
}

// Execute performs the search for req. It touches no controller state.
func Execute(ctx context.Context, s Searcher, req Request) Response {
	results, err := s.SearchRepositories(ctx, req.Query)
	return Response{Seq: req.Seq, Query: req.Query, Results: results, Err: err}
}

// Apply stores the results of a finished search and shows the dropdown. It
// returns false when the response was an error or was discarded as stale;
// UI state is left untouched in both cases.
func (c *Controller) Apply(resp Response) bool {
	if resp.Err != nil {
		logFailure(resp)
		return false
	}

	if c.policy != constants.StaleLastWins && (resp.Seq != c.seq || resp.Seq <= c.valid) {
		log.Debug("discarding stale search response", "query", resp.Query, "seq", resp.Seq, "latest", c.seq)
		return false
	}

	c.results.Replace(resp.Results)
	c.display.setDropdown(dropdownRows(c.results.Items()))
	c.display.SetHidden(ElementDropdown, false)
	log.Info("search results", "query", resp.Query, "count", c.results.Len())
	return true
}

// Search runs one search synchronously: start, execute and apply.
func (c *Controller) Search(ctx context.Context, s Searcher, query string) ([]model.Repository, error) {
	resp := Execute(ctx, s, c.StartSearch(query))
	c.Apply(resp)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return c.results.Items(), nil
}

// Activate dispatches an activated row to its handler.
func (c *Controller) Activate(row Row) Effect {
	handler, ok := c.dispatch[row.Kind]
	if !ok {
		return Effect{}
	}
	return handler(row)
}

// Select pins the result at index if id is not pinned yet and returns the
// rendered selection row.
func (c *Controller) Select(id string, index int) (Fragment, bool) {
	if c.selection.Has(id) {
		return Fragment{}, false
	}

	r, ok := c.results.At(index)
	if !ok || r.Key() != id {
		return Fragment{}, false
	}

	c.selection.Add(r)
	log.Info("pinned repository", "repo", r.FullName, "id", id)
	return NewFragment(r), true
}

// Remove unpins the repository behind a removal control.
func (c *Controller) Remove(target Row) bool {
	if target.Kind != RowRemove {
		return false
	}

	r, ok := c.selection.Remove(target.ID)
	if !ok {
		return false
	}
	c.display.removeFragment(target.ID)
	log.Info("unpinned repository", "repo", r.FullName, "id", target.ID)
	return true
}

// Close stops the pending debounce timer.
func (c *Controller) Close() {
	c.debouncer.Cancel()
}

func (c *Controller) selectRow(row Row) Effect {
	fragment, ok := c.Select(row.ID, row.Index)
	if !ok {
		return Effect{}
	}

	c.display.prepend(fragment)
	c.display.SetHidden(ElementPanel, false)
	c.debouncer.Cancel()
	c.invalidate()
	c.results.Clear()
	c.resetDropdown()
	c.query = ""
	c.persist()

	return Effect{Selected: true, ClearInput: true}
}

func (c *Controller) removeRow(row Row) Effect {
	if !c.Remove(row) {
		return Effect{}
	}
	if c.selection.Len() == 0 {
		c.display.SetHidden(ElementPanel, true)
	}
	c.persist()
	return Effect{Removed: true}
}

// invalidate marks every search issued so far as stale.
func (c *Controller) invalidate() {
	c.valid = c.seq
}

func (c *Controller) resetDropdown() {
	c.display.SetHidden(ElementDropdown, true)
	c.display.clearDropdown()
}

func (c *Controller) persist() {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(c.selection.Items()); err != nil {
		log.Warn("failed to save pinned repositories", "error", err)
	}
}

// logFailure logs a failed search together with the server's error body.
func logFailure(resp Response) {
	var failed *ghclient.SearchRequestFailed
	if errors.As(resp.Err, &failed) {
		body := failed.Body.Message
		if len(failed.Body.Raw) > 0 {
			body = string(failed.Body.Raw)
		}
		log.Error("search request failed",
			"error", resp.Err,
			"url", failed.URL,
			"status", failed.StatusCode,
			"body", body)
		return
	}
	log.Error("search failed", "query", resp.Query, "error", resp.Err)
}

// Query returns the current input text.
func (c *Controller) Query() string {
	return c.query
}

// Pending reports whether a debounce timer is waiting to fire.
func (c *Controller) Pending() bool {
	return c.debouncer.Pending()
}

// Results returns the result cache.
func (c *Controller) Results() *ResultCache {
	return c.results
}

// Selection returns the selection store.
func (c *Controller) Selection() *SelectionStore {
	return c.selection
}

// Display returns the render state.
func (c *Controller) Display() *Display {
	return c.display
}
