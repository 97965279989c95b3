package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/ghclient"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
)

// fakeSearcher returns canned results per query and records every call.
type fakeSearcher struct {
	results map[string][]model.Repository
	err     error
	calls   []string
}

func (f *fakeSearcher) SearchRepositories(_ context.Context, query string) ([]model.Repository, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func makeRepos(prefix string, n int, firstID int64) []model.Repository {
	repos := make([]model.Repository, n)
	for i := range repos {
		id := firstID + int64(i)
		repos[i] = model.Repository{
			ID:         id,
			FullName:   fmt.Sprintf("%s/repo-%d", prefix, id),
			Name:       fmt.Sprintf("repo-%d", id),
			OwnerLogin: prefix,
			StarCount:  int(id) * 3,
		}
	}
	return repos
}

// harness wires a controller to a manual clock the way the TUI does: fired
// queries are started, executed and applied on the test goroutine.
type harness struct {
	t        *testing.T
	sched    *manualScheduler
	searcher *fakeSearcher
	ctrl     *Controller
	fired    []string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		sched:    &manualScheduler{},
		searcher: &fakeSearcher{results: map[string][]model.Repository{}},
	}
	opts = append([]Option{WithScheduler(h.sched), WithDelay(time.Second)}, opts...)
	h.ctrl = NewController(func(q string) { h.fired = append(h.fired, q) }, opts...)
	return h
}

// settle lets the debounce period pass and runs every fired search.
func (h *harness) settle() {
	h.sched.Advance(time.Second)
	fired := h.fired
	h.fired = nil
	for _, q := range fired {
		req, ok := h.ctrl.StartDebounced(q)
		if !ok {
			continue
		}
		h.ctrl.Apply(Execute(context.Background(), h.searcher, req))
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.Initialize(log.LevelQuiet, &buf)
	t.Cleanup(func() { log.Initialize(log.LevelQuiet, os.Stderr) })
	return &buf
}

func TestOneSearchPerQuietPeriod(t *testing.T) {
	h := newHarness(t)

	for _, q := range []string{"o", "oc", "oct", "octo"} {
		h.ctrl.OnInput(q)
		h.sched.Advance(500 * time.Millisecond)
	}
	assert.Empty(t, h.searcher.calls, "no request until the input is quiet")

	h.settle()
	assert.Equal(t, []string{"octo"}, h.searcher.calls)

	h.ctrl.OnInput("octocat")
	h.settle()
	assert.Equal(t, []string{"octo", "octocat"}, h.searcher.calls)
}

func TestDropdownShowsFirstFive(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 7, 1)

	h.ctrl.OnInput("octo")
	h.settle()

	d := h.ctrl.Display()
	assert.False(t, d.Hidden(ElementDropdown))
	rows := d.DropdownRows()
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, RowDropdown, row.Kind)
		assert.Equal(t, i, row.Index)
		assert.Equal(t, model.KeyOf(int64(i+1)), row.ID)
		assert.Equal(t, fmt.Sprintf("octo/repo-%d", i+1), row.Label)
	}
	assert.Equal(t, 5, h.ctrl.Results().Len())
}

func TestEmptyInputClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 3, 1)

	h.ctrl.OnInput("octo")
	h.settle()
	require.False(t, h.ctrl.Display().Hidden(ElementDropdown))

	h.ctrl.OnInput("octoc")
	require.True(t, h.ctrl.Pending())

	h.ctrl.OnInput("")
	assert.False(t, h.ctrl.Pending())
	assert.True(t, h.ctrl.Display().Hidden(ElementDropdown))
	assert.Empty(t, h.ctrl.Display().DropdownRows())
	assert.True(t, h.ctrl.Results().Cleared())

	h.settle()
	assert.Equal(t, []string{"octo"}, h.searcher.calls, "canceled timer must not fire")
}

func TestEmptyInputWhenIdleIsHarmless(t *testing.T) {
	h := newHarness(t)
	h.ctrl.OnInput("")
	assert.True(t, h.ctrl.Display().Hidden(ElementDropdown))
	assert.False(t, h.ctrl.Pending())
}

func TestSelectIsIdempotentPerIdentifier(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 3, 1)

	h.ctrl.OnInput("octo")
	h.settle()
	row := h.ctrl.Display().DropdownRows()[1]

	effect := h.ctrl.Activate(row)
	assert.True(t, effect.Selected)
	assert.True(t, effect.ClearInput)
	assert.Equal(t, 1, h.ctrl.Selection().Len())
	assert.True(t, h.ctrl.Selection().Has(row.ID))

	d := h.ctrl.Display()
	assert.False(t, d.Hidden(ElementPanel))
	assert.True(t, d.Hidden(ElementDropdown))
	assert.Empty(t, d.DropdownRows())
	assert.True(t, h.ctrl.Results().Cleared())
	assert.Equal(t, "", h.ctrl.Query())

	frags := d.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, []string{"Name: repo-2", "Owner: octo", "Stars: 6"}, frags[0].Lines())
	assert.Equal(t, RowRemove, frags[0].Remove.Kind)

	// Search again and pick the same repository.
	h.ctrl.OnInput("octo")
	h.settle()
	effect = h.ctrl.Activate(h.ctrl.Display().DropdownRows()[1])
	assert.False(t, effect.Selected)
	assert.Equal(t, 1, h.ctrl.Selection().Len())
	assert.Len(t, h.ctrl.Display().Fragments(), 1)
}

func TestSelectDirect(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 2, 10)
	h.ctrl.OnInput("octo")
	h.settle()

	_, ok := h.ctrl.Select("10", 5)
	assert.False(t, ok, "index out of range")

	_, ok = h.ctrl.Select("11", 0)
	assert.False(t, ok, "identifier must match the row at index")

	frag, ok := h.ctrl.Select("11", 1)
	require.True(t, ok)
	assert.Equal(t, "11", frag.Row.ID)

	_, ok = h.ctrl.Select("11", 1)
	assert.False(t, ok, "duplicate selection is a no-op")
}

func TestRemoveHidesPanelWhenEmpty(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["a"] = makeRepos("a", 1, 1)
	h.searcher.results["b"] = makeRepos("b", 1, 2)

	h.ctrl.OnInput("a")
	h.settle()
	h.ctrl.Activate(h.ctrl.Display().DropdownRows()[0])
	h.ctrl.OnInput("b")
	h.settle()
	h.ctrl.Activate(h.ctrl.Display().DropdownRows()[0])

	frags := h.ctrl.Display().Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, "2", frags[0].Row.ID, "newest selection is shown first")

	// Activating the selection row itself does nothing.
	effect := h.ctrl.Activate(frags[1].Row)
	assert.Equal(t, Effect{}, effect)
	assert.Equal(t, 2, h.ctrl.Selection().Len())

	// Remove A: only B remains and the panel stays visible.
	effect = h.ctrl.Activate(frags[1].Remove)
	assert.True(t, effect.Removed)
	assert.Equal(t, []model.Repository{makeRepos("b", 1, 2)[0]}, h.ctrl.Selection().Items())
	assert.False(t, h.ctrl.Display().Hidden(ElementPanel))
	require.Len(t, h.ctrl.Display().Fragments(), 1)

	// Remove B: the panel hides.
	effect = h.ctrl.Activate(h.ctrl.Display().Fragments()[0].Remove)
	assert.True(t, effect.Removed)
	assert.Equal(t, 0, h.ctrl.Selection().Len())
	assert.True(t, h.ctrl.Display().Hidden(ElementPanel))

	// Removing again is a no-op.
	assert.False(t, h.ctrl.Remove(Row{Kind: RowRemove, ID: "2"}))
	assert.False(t, h.ctrl.Remove(Row{Kind: RowSelection, ID: "2"}))
}

func TestRequestFailedLeavesStateAndLogsBody(t *testing.T) {
	buf := captureLog(t)
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 2, 1)

	h.ctrl.OnInput("octo")
	h.settle()
	h.ctrl.OnInput("")
	require.True(t, h.ctrl.Display().Hidden(ElementDropdown))

	h.searcher.err = &ghclient.SearchRequestFailed{
		URL:        "https://api.github.com/search/repositories?q=bad",
		StatusCode: 422,
		Body:       ghclient.ErrorBody{Message: "Validation Failed"},
	}
	h.ctrl.OnInput("bad")
	h.settle()

	assert.True(t, h.ctrl.Display().Hidden(ElementDropdown), "failure must not show the dropdown")
	assert.Empty(t, h.ctrl.Display().DropdownRows())
	assert.Contains(t, buf.String(), "Validation Failed")
	assert.Contains(t, buf.String(), "search request failed")
}

func TestRequestFailedLogsRawBody(t *testing.T) {
	buf := captureLog(t)
	h := newHarness(t)
	h.searcher.err = &ghclient.SearchRequestFailed{
		URL:        "https://api.github.com/search/repositories?q=bad",
		StatusCode: 422,
		Body: ghclient.ErrorBody{
			Message: "Validation Failed",
			Raw:     []byte(`{"message":"Validation Failed","extra":"x"}`),
		},
	}

	h.ctrl.OnInput("bad")
	h.settle()

	assert.Contains(t, buf.String(), `extra`, "the raw payload is logged when present")
}

func TestNetworkErrorIsLogged(t *testing.T) {
	buf := captureLog(t)
	h := newHarness(t)
	h.searcher.err = errors.New("connection refused")

	h.ctrl.OnInput("octo")
	h.settle()

	assert.True(t, h.ctrl.Display().Hidden(ElementDropdown))
	assert.Contains(t, buf.String(), "connection refused")
}

func TestStartDebouncedDropsSupersededQuery(t *testing.T) {
	tests := []struct {
		name  string
		after func(c *Controller)
	}{
		{"input cleared", func(c *Controller) { c.OnInput("") }},
		{"input changed", func(c *Controller) { c.OnInput("octocat") }},
		{"input retyped", func(c *Controller) { c.OnInput("octo") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.ctrl.OnInput("octo")
			h.sched.Advance(time.Second)
			require.Equal(t, []string{"octo"}, h.fired)

			tt.after(h.ctrl)
			_, ok := h.ctrl.StartDebounced("octo")
			assert.False(t, ok)
		})
	}
}

func TestStartDebouncedClaimsOnce(t *testing.T) {
	h := newHarness(t)
	h.ctrl.OnInput("octo")
	h.sched.Advance(time.Second)

	req, ok := h.ctrl.StartDebounced("octo")
	require.True(t, ok)
	assert.Equal(t, "octo", req.Query)

	_, ok = h.ctrl.StartDebounced("octo")
	assert.False(t, ok, "a fired query starts one search")
}

func TestStaleResponseDiscarded(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["old"] = makeRepos("old", 2, 1)
	h.searcher.results["new"] = makeRepos("new", 3, 10)

	oldReq := h.ctrl.StartSearch("old")
	newReq := h.ctrl.StartSearch("new")

	// The newer request resolves first, then the older one arrives.
	assert.True(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, newReq)))
	assert.False(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, oldReq)))

	rows := h.ctrl.Display().DropdownRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "new/repo-10", rows[0].Label)
}

func TestStaleResponseLastWins(t *testing.T) {
	h := newHarness(t, WithStalePolicy(constants.StaleLastWins))
	h.searcher.results["old"] = makeRepos("old", 2, 1)
	h.searcher.results["new"] = makeRepos("new", 3, 10)

	oldReq := h.ctrl.StartSearch("old")
	newReq := h.ctrl.StartSearch("new")

	assert.True(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, newReq)))
	assert.True(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, oldReq)))

	rows := h.ctrl.Display().DropdownRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "old/repo-1", rows[0].Label)
}

func TestClearedInputDiscardsInFlightResponse(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 2, 1)

	req := h.ctrl.StartSearch("octo")
	h.ctrl.OnInput("")

	assert.False(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, req)))
	assert.True(t, h.ctrl.Display().Hidden(ElementDropdown))
}

func TestClearedInputLastWinsRepopulates(t *testing.T) {
	h := newHarness(t, WithStalePolicy(constants.StaleLastWins))
	h.searcher.results["octo"] = makeRepos("octo", 2, 1)

	req := h.ctrl.StartSearch("octo")
	h.ctrl.OnInput("")

	assert.True(t, h.ctrl.Apply(Execute(context.Background(), h.searcher, req)))
	assert.False(t, h.ctrl.Display().Hidden(ElementDropdown))
}

func TestSearchSynchronous(t *testing.T) {
	h := newHarness(t)
	h.searcher.results["octo"] = makeRepos("octo", 7, 1)

	repos, err := h.ctrl.Search(context.Background(), h.searcher, "octo")
	require.NoError(t, err)
	assert.Len(t, repos, 5)

	h.searcher.err = errors.New("boom")
	_, err = h.ctrl.Search(context.Background(), h.searcher, "octo")
	assert.Error(t, err)
}

type recordingPersister struct {
	saves [][]model.Repository
	err   error
}

func (p *recordingPersister) Save(repos []model.Repository) error {
	p.saves = append(p.saves, repos)
	return p.err
}

func TestPersisterAndInitialSelection(t *testing.T) {
	p := &recordingPersister{}
	initial := []model.Repository{makeRepos("x", 1, 2)[0], makeRepos("x", 1, 1)[0]}
	h := newHarness(t, WithPersister(p), WithInitialSelection(initial))

	assert.False(t, h.ctrl.Display().Hidden(ElementPanel))
	assert.Equal(t, initial, h.ctrl.Selection().Items())
	frags := h.ctrl.Display().Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, "2", frags[0].Row.ID)

	h.ctrl.Activate(frags[0].Remove)
	require.Len(t, p.saves, 1)
	assert.Equal(t, []model.Repository{initial[1]}, p.saves[0])
}

func TestPersisterErrorIsWarned(t *testing.T) {
	buf := captureLog(t)
	p := &recordingPersister{err: errors.New("disk full")}
	h := newHarness(t, WithPersister(p))
	h.searcher.results["octo"] = makeRepos("octo", 1, 1)

	h.ctrl.OnInput("octo")
	h.settle()
	effect := h.ctrl.Activate(h.ctrl.Display().DropdownRows()[0])

	assert.True(t, effect.Selected, "a failed save does not undo the selection")
	assert.Contains(t, buf.String(), "disk full")
}

func TestSetHiddenIdempotent(t *testing.T) {
	d := NewDisplay()
	assert.True(t, d.Hidden(ElementDropdown))
	assert.True(t, d.Hidden(ElementPanel))

	assert.False(t, d.SetHidden(ElementDropdown, true))
	assert.True(t, d.SetHidden(ElementDropdown, false))
	assert.False(t, d.SetHidden(ElementDropdown, false))
	assert.False(t, d.Hidden(ElementDropdown))
	assert.True(t, d.Hidden(ElementPanel))
}

func TestSetHiddenTracesElement(t *testing.T) {
	var buf bytes.Buffer
	log.Initialize(log.LevelTrace, &buf)
	t.Cleanup(func() { log.Initialize(log.LevelQuiet, os.Stderr) })

	d := NewDisplay()
	d.SetHidden(ElementPanel, false)
	assert.Contains(t, buf.String(), "element=panel")
	assert.Equal(t, "dropdown", ElementDropdown.String())
}

func TestActivateUnknownKind(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, Effect{}, h.ctrl.Activate(Row{Kind: RowKind(42)}))
}

func TestResultCache(t *testing.T) {
	c := NewResultCache(5)
	assert.True(t, c.Cleared())

	c.Replace(nil)
	assert.False(t, c.Cleared(), "an empty result set is not a cleared cache")
	assert.Equal(t, 0, c.Len())

	src := makeRepos("a", 7, 1)
	c.Replace(src)
	assert.Equal(t, 5, c.Len())
	src[0].Name = "mutated"
	r, ok := c.At(0)
	require.True(t, ok)
	assert.Equal(t, "repo-1", r.Name, "cache holds its own copy")

	_, ok = c.At(5)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)

	c.Clear()
	assert.True(t, c.Cleared())
}

func TestSelectionStoreKeys(t *testing.T) {
	s := NewSelectionStore()
	repos := makeRepos("a", 3, 100)
	for _, r := range repos {
		assert.True(t, s.Add(r))
	}
	assert.False(t, s.Add(repos[0]))

	for _, r := range s.Items() {
		got, ok := s.Get(r.Key())
		require.True(t, ok)
		assert.Equal(t, model.KeyOf(got.ID), r.Key())
	}

	_, ok := s.Remove("101")
	assert.True(t, ok)
	assert.Equal(t, []model.Repository{repos[2], repos[0]}, s.Items())
}
