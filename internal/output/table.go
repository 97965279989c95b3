package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/format"
	"github.com/spiffcs/repopin/internal/model"
	"golang.org/x/term"
)

const colStars = 7

// TableFormatter formats output as a terminal table
type TableFormatter struct {
	// Links wraps names in OSC 8 hyperlinks. Defaults to on when stdout
	// is a terminal.
	Links *bool
}

func (f *TableFormatter) links() bool {
	if f.Links != nil {
		return *f.Links
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// hyperlink creates a clickable terminal hyperlink using OSC 8
func hyperlink(text, url string) string {
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}

// Format outputs repositories as a table
func (f *TableFormatter) Format(repos []model.Repository, w io.Writer) error {
	if len(repos) == 0 {
		_, err := fmt.Fprintln(w, "No repositories found.")
		return err
	}

	header := color.New(color.Bold)
	starColor := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintf(w, "%s  %s  %s\n",
		header.Sprint(format.PadRight("Repository", constants.NameColumnWidth)),
		header.Sprint(format.PadRight("Owner", constants.OwnerColumnWidth)),
		header.Sprint(fmt.Sprintf("%*s", colStars, "Stars")))
	fmt.Fprintln(w, strings.Repeat("-", constants.NameColumnWidth+constants.OwnerColumnWidth+colStars+4))

	for _, r := range repos {
		name := format.Fit(r.FullName, constants.NameColumnWidth)
		if f.links() && r.HTMLURL != "" {
			name = hyperlink(name, r.HTMLURL)
		}
		owner := format.Fit(r.OwnerLogin, constants.OwnerColumnWidth)
		stars := starColor.Sprint(fmt.Sprintf("%*s", colStars, format.Stars(r.StarCount)))

		fmt.Fprintf(w, "%s  %s  %s\n", name, dim.Sprint(owner), stars)
	}

	_, err := fmt.Fprintf(w, "\n%d repositories\n", len(repos))
	return err
}
