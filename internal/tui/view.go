package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/format"
	"github.com/spiffcs/repopin/internal/search"
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("repopin"))
	b.WriteString(subtitleStyle.Render("  search and pin GitHub repositories"))
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	if m.inFlight > 0 {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")

	if !m.ctrl.Display().Hidden(search.ElementDropdown) {
		b.WriteString(m.renderDropdown())
		b.WriteString("\n")
	}

	if !m.ctrl.Display().Hidden(search.ElementPanel) {
		b.WriteString(m.renderPanel())
		b.WriteString("\n")
	}

	if warning := m.rateLimitWarning(); warning != "" {
		b.WriteString(warnStyle.Render(warning))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(m.helpView()))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderDropdown() string {
	rows := m.ctrl.Display().DropdownRows()
	if len(rows) == 0 {
		return dropdownStyle.Render(emptyStyle.Render("No repositories found"))
	}

	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		r, ok := m.ctrl.Results().At(row.Index)
		if !ok {
			continue
		}
		name := format.Fit(row.Label, constants.NameColumnWidth)
		stars := fmt.Sprintf("★ %s", format.Stars(r.StarCount))

		if m.focus == focusSearch && i == m.rowCursor {
			lines = append(lines, cursorRowStyle.Render(name+"  "+stars))
			continue
		}
		lines = append(lines, rowStyle.Render(name)+"  "+starStyle.Render(stars))
	}
	return dropdownStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderPanel() string {
	fragments := m.ctrl.Display().Fragments()

	var blocks []string
	blocks = append(blocks, titleStyle.Render(fmt.Sprintf("Pinned (%d)", len(fragments))))
	for i, f := range fragments {
		fields := f.Lines()
		focused := m.focus == focusPanel && i == m.pinnedCursor

		remove := removeStyle.Render("[x] unpin")
		if focused {
			fields[0] = cursorRowStyle.Render(fields[0])
		} else {
			fields[0] = rowStyle.Render(fields[0])
		}
		fields[1] = ownerStyle.Render(fields[1])
		fields[2] = starStyle.Render(fields[2])

		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, append(fields, remove)...))
	}

	style := panelStyle
	if m.focus == focusPanel {
		style = focusedPanelStyle
	}
	return style.Render(strings.Join(blocks, "\n\n"))
}

func (m Model) rateLimitWarning() string {
	if m.rateLimit == nil {
		return ""
	}
	_, _, resetAt, limited := m.rateLimit.Status()
	if !limited {
		return ""
	}
	wait := time.Until(resetAt).Round(time.Second)
	if wait <= 0 {
		return ""
	}
	return fmt.Sprintf("Rate limited - searches paused (resets in %s)", wait)
}

func (m Model) helpView() string {
	if m.focus == focusPanel {
		return m.help.View(panelKeys(m.keys))
	}
	return m.help.View(searchKeys(m.keys))
}
