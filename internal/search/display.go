package search

import (
	"fmt"

	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
)

// Element identifies a toggleable region of the widget.
type Element int

const (
	// ElementDropdown is the candidate list under the input.
	ElementDropdown Element = iota
	// ElementPanel is the list of pinned repositories.
	ElementPanel
)

func (e Element) String() string {
	switch e {
	case ElementDropdown:
		return "dropdown"
	case ElementPanel:
		return "panel"
	default:
		return "unknown"
	}
}

// RowKind tags every activatable row with the action it dispatches to.
type RowKind int

const (
	// RowDropdown is a search result; activating it pins the repository.
	RowDropdown RowKind = iota
	// RowSelection is a pinned repository; activating it does nothing.
	RowSelection
	// RowRemove is the removal control of a pinned repository.
	RowRemove
)

func (k RowKind) String() string {
	switch k {
	case RowDropdown:
		return "dropdown-row"
	case RowSelection:
		return "selection-row"
	case RowRemove:
		return "remove-control"
	default:
		return "unknown"
	}
}

// Row is a rendered, activatable line.
type Row struct {
	Kind  RowKind
	ID    string
	Index int
	Label string
}

// Fragment is the rendered form of one pinned repository.
type Fragment struct {
	Row    Row
	Name   string
	Owner  string
	Stars  int
	URL    string
	Remove Row
}

// Lines returns the fragment's text fields in display order.
func (f Fragment) Lines() []string {
	return []string{
		fmt.Sprintf("Name: %s", f.Name),
		fmt.Sprintf("Owner: %s", f.Owner),
		fmt.Sprintf("Stars: %d", f.Stars),
	}
}

// NewFragment renders r as a selection row with its removal control.
func NewFragment(r model.Repository) Fragment {
	key := r.Key()
	return Fragment{
		Row:    Row{Kind: RowSelection, ID: key, Label: r.FullName},
		Name:   r.Name,
		Owner:  r.OwnerLogin,
		Stars:  r.StarCount,
		URL:    r.HTMLURL,
		Remove: Row{Kind: RowRemove, ID: key},
	}
}

// dropdownRows renders results as dropdown rows tagged with key and index.
func dropdownRows(results []model.Repository) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{Kind: RowDropdown, ID: r.Key(), Index: i, Label: r.FullName}
	}
	return rows
}

// Display is the render state of the widget: what each region contains and
// whether it is shown. Both regions start hidden.
type Display struct {
	hidden   map[Element]bool
	dropdown []Row
	panel    []Fragment
}

// NewDisplay returns a display with every element hidden and empty.
func NewDisplay() *Display {
	return &Display{
		hidden: map[Element]bool{
			ElementDropdown: true,
			ElementPanel:    true,
		},
	}
}

// SetHidden sets the visibility of el. It is a no-op, returning false, when
// el is already in the requested state.
func (d *Display) SetHidden(el Element, hidden bool) bool {
	if d.hidden[el] == hidden {
		return false
	}
	d.hidden[el] = hidden
	log.Trace("visibility changed", "element", el, "hidden", hidden)
	return true
}

// Hidden reports whether el is hidden.
func (d *Display) Hidden(el Element) bool {
	return d.hidden[el]
}

// DropdownRows returns the rendered dropdown content.
func (d *Display) DropdownRows() []Row {
	return d.dropdown
}

// Fragments returns the selection panel content, top first.
func (d *Display) Fragments() []Fragment {
	return d.panel
}

func (d *Display) setDropdown(rows []Row) {
	d.dropdown = rows
}

func (d *Display) clearDropdown() {
	d.dropdown = nil
}

func (d *Display) prepend(f Fragment) {
	d.panel = append([]Fragment{f}, d.panel...)
}

func (d *Display) removeFragment(id string) bool {
	for i, f := range d.panel {
		if f.Row.ID == id {
			d.panel = append(d.panel[:i], d.panel[i+1:]...)
			return true
		}
	}
	return false
}
