// Package output provides CLI output formatting. Color is applied only
// when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/notora/notora/internal/job"
	"github.com/notora/notora/internal/store"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer, enabling color when out is a terminal.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return NewWithColor(out, useColor)
}

// NewWithColor creates a Writer with an explicit color preference.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	styles := NoColorStyles()
	if useColor {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Println writes a plain line. Write errors on console output are
// intentionally ignored.
func (w *Writer) Println(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Printf writes formatted plain text.
func (w *Writer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Successf prints a highlighted success line.
func (w *Writer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warningf prints a warning line.
func (w *Writer) Warningf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints an error line.
func (w *Writer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// SearchResults renders a result page: one block per hit with slug,
// type, rank and timestamp, plus a pagination footer.
func (w *Writer) SearchResults(page *store.ResultPage) {
	if len(page.Results) == 0 {
		w.Println("No results.")
		return
	}

	for i, res := range page.Results {
		header := fmt.Sprintf("%d. %s", i+1, res.Title)
		_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(header))

		meta := fmt.Sprintf("   %s  %s", res.Type, res.Slug)
		if res.Slug == "" {
			meta = fmt.Sprintf("   %s  id=%s", res.Type, res.ID)
		}
		_, _ = fmt.Fprintln(w.out, w.styles.Label.Render(meta))
		if res.Rank != 0 {
			_, _ = fmt.Fprintln(w.out, w.styles.Rank.Render(fmt.Sprintf("   rank %.3f, updated %s", res.Rank, res.LastUpdated)))
		}
		if res.Content != "" {
			w.snippet(res.Content)
		}
		_, _ = fmt.Fprintln(w.out)
	}

	footer := fmt.Sprintf("%d of %d results", len(page.Results), page.TotalCount)
	if page.HasMore {
		footer += " (more available, use --offset)"
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(footer))
}

// Record renders a full page or database record as markdown with a
// metadata header.
func (w *Writer) Record(rec *store.Record) {
	switch rec.Type {
	case store.TypePage:
		w.recordHeader(rec.Page.Slug, string(rec.Type), rec.Page.LastUpdated)
		w.Println(rec.Page.Content)
	case store.TypeDatabase:
		w.recordHeader(rec.Database.Slug, string(rec.Type), rec.Database.LastUpdated)
		_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(rec.Database.Title))
		if rec.Database.Properties != "" {
			w.Println("")
			w.Println(rec.Database.Properties)
		}
	}
}

// Jobs renders job statuses as an aligned table.
func (w *Writer) Jobs(statuses []*job.Status) {
	if len(statuses) == 0 {
		w.Println("No jobs recorded.")
		return
	}

	_, _ = fmt.Fprintln(w.out, w.styles.Label.Render(fmt.Sprintf("%-24s %-12s %-25s %s", "JOB", "STATE", "STARTED", "MESSAGE")))
	for _, st := range statuses {
		line := fmt.Sprintf("%-24s %-12s %-25s %s",
			st.JobID, st.State, st.StartTime.Format("2006-01-02 15:04:05 MST"), st.Message)
		switch st.State {
		case job.StateError:
			_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(line))
		case job.StateEnd:
			_, _ = fmt.Fprintln(w.out, w.styles.Success.Render(line))
		default:
			_, _ = fmt.Fprintln(w.out, line)
		}
	}
}

func (w *Writer) recordHeader(slug, kind, updated string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(fmt.Sprintf("%s  %s  updated %s", slug, kind, updated)))
	_, _ = fmt.Fprintln(w.out)
}

// snippet prints the first lines of content, indented and dimmed.
func (w *Writer) snippet(content string) {
	const maxLines = 3
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render("   "+line))
	}
}
